package gitdiff_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard"
	"github.com/mergeguard/mergeguard/gitdiff"
)

func TestParser_Parse_EmptyInput(t *testing.T) {
	t.Parallel()

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(""))

	require.NoError(t, err)
	assert.Empty(t, diff.Files)
}

func TestParser_Parse_ModifiedFile(t *testing.T) {
	t.Parallel()

	input := `diff --git a/auth/session.py b/auth/session.py
index 1234567..abcdefg 100644
--- a/auth/session.py
+++ b/auth/session.py
@@ -1,5 +1,6 @@ def validate_token
 def validate_token(token):

     claims = decode(token)
-    return claims
+    check_expiry(claims)
+    return claims
 # end
`

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, diff.Files, 1)

	f := diff.Files[0]
	// go-gitdiff strips the a/ and b/ prefixes.
	assert.Equal(t, "auth/session.py", f.Path)
	assert.Equal(t, mergeguard.FileModified, f.Op)
	assert.False(t, f.IsBinary)

	require.Len(t, f.Hunks, 1)
	h := f.Hunks[0]
	assert.Equal(t, 1, h.OldStart)
	assert.Equal(t, 5, h.OldCount)
	assert.Equal(t, 1, h.NewStart)
	assert.Equal(t, 6, h.NewCount)
	assert.Equal(t, "def validate_token", h.Section)

	// 4 context + 1 deleted + 2 added.
	require.Len(t, h.Lines, 7)

	assert.Equal(t, mergeguard.LineContext, h.Lines[0].Type)
	assert.Equal(t, "def validate_token(token):", h.Lines[0].Content)
	assert.Equal(t, 1, h.Lines[0].OldLineNum)
	assert.Equal(t, 1, h.Lines[0].NewLineNum)

	assert.Equal(t, mergeguard.LineDeleted, h.Lines[3].Type)
	assert.Equal(t, 4, h.Lines[3].OldLineNum)
	assert.Equal(t, 0, h.Lines[3].NewLineNum)

	assert.Equal(t, mergeguard.LineAdded, h.Lines[4].Type)
	assert.Equal(t, "    check_expiry(claims)", h.Lines[4].Content)
	assert.Equal(t, 0, h.Lines[4].OldLineNum)
	assert.Equal(t, 4, h.Lines[4].NewLineNum)

	assert.Equal(t, mergeguard.LineAdded, h.Lines[5].Type)
	assert.Equal(t, 5, h.Lines[5].NewLineNum)

	assert.Equal(t, mergeguard.LineContext, h.Lines[6].Type)
	assert.Equal(t, 5, h.Lines[6].OldLineNum)
	assert.Equal(t, 6, h.Lines[6].NewLineNum)

	// The attribution model consumes these derived ranges.
	assert.Equal(t, []mergeguard.LineRange{{Start: 4, End: 5}}, f.ModifiedRanges())
	assert.Equal(t, []mergeguard.LineRange{{Start: 4, End: 4}}, f.RemovedRanges())
}

func TestParser_Parse_AddedFile(t *testing.T) {
	t.Parallel()

	input := `diff --git a/util/new.py b/util/new.py
new file mode 100644
index 0000000..1234567
--- /dev/null
+++ b/util/new.py
@@ -0,0 +1,3 @@
+def helper():
+
+    return 1
`

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, diff.Files, 1)

	f := diff.Files[0]
	assert.Equal(t, "util/new.py", f.Path)
	assert.Equal(t, mergeguard.FileAdded, f.Op)

	require.Len(t, f.Hunks, 1)
	h := f.Hunks[0]
	require.Len(t, h.Lines, 3)
	for i, line := range h.Lines {
		assert.Equal(t, mergeguard.LineAdded, line.Type)
		assert.Equal(t, 0, line.OldLineNum)
		assert.Equal(t, i+1, line.NewLineNum)
	}
}

func TestParser_Parse_DeletedFile(t *testing.T) {
	t.Parallel()

	input := `diff --git a/util/old.py b/util/old.py
deleted file mode 100644
index 1234567..0000000
--- a/util/old.py
+++ /dev/null
@@ -1,2 +0,0 @@
-def gone():
-    pass
`

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, diff.Files, 1)

	f := diff.Files[0]
	// Removals keep the old path so analysis can still name the file.
	assert.Equal(t, "util/old.py", f.Path)
	assert.Equal(t, mergeguard.FileRemoved, f.Op)

	require.Len(t, f.Hunks, 1)
	for i, line := range f.Hunks[0].Lines {
		assert.Equal(t, mergeguard.LineDeleted, line.Type)
		assert.Equal(t, i+1, line.OldLineNum)
	}
}

func TestParser_Parse_RenamedFile(t *testing.T) {
	t.Parallel()

	input := `diff --git a/util/old.py b/util/moved.py
similarity index 100%
rename from util/old.py
rename to util/moved.py
`

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, diff.Files, 1)

	f := diff.Files[0]
	assert.Equal(t, "util/moved.py", f.Path)
	assert.Equal(t, "util/old.py", f.OldPath)
	assert.Equal(t, mergeguard.FileRenamed, f.Op)
	assert.Empty(t, f.Hunks)
}

func TestParser_Parse_BinaryFile(t *testing.T) {
	t.Parallel()

	input := `diff --git a/logo.png b/logo.png
new file mode 100644
index 0000000..1234567
Binary files /dev/null and b/logo.png differ
`

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, diff.Files, 1)

	f := diff.Files[0]
	assert.Equal(t, "logo.png", f.Path)
	assert.True(t, f.IsBinary)
	assert.Empty(t, f.Hunks)
}

func TestParser_Parse_MultipleFiles(t *testing.T) {
	t.Parallel()

	input := `diff --git a/a.py b/a.py
index 1234567..abcdefg 100644
--- a/a.py
+++ b/a.py
@@ -1 +1 @@
-old
+new
diff --git a/b.py b/b.py
new file mode 100644
index 0000000..1234567
--- /dev/null
+++ b/b.py
@@ -0,0 +1 @@
+content
`

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, diff.Files, 2)

	assert.Equal(t, "a.py", diff.Files[0].Path)
	assert.Equal(t, mergeguard.FileModified, diff.Files[0].Op)
	assert.Equal(t, "b.py", diff.Files[1].Path)
	assert.Equal(t, mergeguard.FileAdded, diff.Files[1].Op)
}

func TestParser_Parse_StripsTrailingNewlines(t *testing.T) {
	t.Parallel()

	input := `diff --git a/file.txt b/file.txt
index 1234567..abcdefg 100644
--- a/file.txt
+++ b/file.txt
@@ -1 +1 @@
-old
+new
`

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, diff.Files, 1)
	h := diff.Files[0].Hunks[0]
	require.Len(t, h.Lines, 2)
	assert.Equal(t, "old", h.Lines[0].Content)
	assert.Equal(t, "new", h.Lines[1].Content)
}

func TestParser_Parse_MalformedInput(t *testing.T) {
	t.Parallel()

	input := `diff --git a/file.py
@@ -1,1 +1,1 @@ incomplete header
`

	diff, err := gitdiff.NewParser().Parse(strings.NewReader(input))

	require.Error(t, err)
	assert.Nil(t, diff)
}
