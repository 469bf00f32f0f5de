package github_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard"
	"github.com/mergeguard/mergeguard/github"
)

func newClient(t *testing.T, handler http.Handler) *github.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := github.New(context.Background(), github.Config{
		Owner:   "acme",
		Repo:    "platform",
		Token:   "test-token",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)
	return client
}

func TestClient_OpenProposals(t *testing.T) {
	t.Parallel()

	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/platform/pulls", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		io.WriteString(w, `[
			{"number": 15, "title": "Refactor expiry", "body": "", "user": {"login": "casey"},
			 "base": {"ref": "main"}, "head": {"ref": "expiry", "sha": "abc123"},
			 "labels": [{"name": "ai-generated"}]},
			{"number": 12, "title": "Harden validation", "body": "", "user": {"login": "river"},
			 "base": {"ref": "main"}, "head": {"ref": "hardening", "sha": "def456"}, "labels": []}
		]`)
	}))

	proposals, err := client.OpenProposals(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	assert.Equal(t, 15, proposals[0].Number)
	assert.Equal(t, "casey", proposals[0].Author)
	assert.Equal(t, "main", proposals[0].BaseBranch)
	assert.Equal(t, "abc123", proposals[0].HeadSHA)
	assert.Equal(t, []string{"ai-generated"}, proposals[0].Labels)
	assert.Equal(t, 12, proposals[1].Number)
}

func TestClient_ProposalFiles(t *testing.T) {
	t.Parallel()

	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/platform/pulls/12", r.URL.Path)
		assert.Equal(t, "application/vnd.github.v3.diff", r.Header.Get("Accept"))
		io.WriteString(w, `diff --git a/auth/session.py b/auth/session.py
index 1234567..abcdefg 100644
--- a/auth/session.py
+++ b/auth/session.py
@@ -1 +1 @@
-old
+new
`)
	}))

	files, err := client.ProposalFiles(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "auth/session.py", files[0].Path)
	assert.Equal(t, mergeguard.FileModified, files[0].Op)
}

func TestClient_FileContent(t *testing.T) {
	t.Parallel()

	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/platform/contents/auth/session.py", r.URL.Path)
		assert.Equal(t, "abc123", r.URL.Query().Get("ref"))
		assert.Equal(t, "application/vnd.github.raw", r.Header.Get("Accept"))
		io.WriteString(w, "def validate_token(token):\n    pass\n")
	}))

	content, err := client.FileContent(context.Background(), "auth/session.py", "abc123")
	require.NoError(t, err)
	assert.Contains(t, string(content), "validate_token")
}

func TestClient_PostComment_CreatesWhenAbsent(t *testing.T) {
	t.Parallel()

	var created string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			io.WriteString(w, `[{"id": 1, "body": "unrelated comment"}]`)
		case r.Method == http.MethodPost:
			assert.Equal(t, "/repos/acme/platform/issues/12/comments", r.URL.Path)
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			created = payload["body"]
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	body := mergeguard.CommentMarker + "\nreport"
	require.NoError(t, client.PostComment(context.Background(), 12, body))
	assert.Equal(t, body, created)
}

func TestClient_PostComment_UpdatesExisting(t *testing.T) {
	t.Parallel()

	var patched string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			existing := []map[string]any{
				{"id": 7, "body": "unrelated"},
				{"id": 9, "body": mergeguard.CommentMarker + "\nstale report"},
			}
			json.NewEncoder(w).Encode(existing)
		case r.Method == http.MethodPatch:
			assert.Equal(t, "/repos/acme/platform/issues/comments/9", r.URL.Path)
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			patched = payload["body"]
			io.WriteString(w, `{}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	body := mergeguard.CommentMarker + "\nfresh report"
	require.NoError(t, client.PostComment(context.Background(), 12, body))
	assert.Equal(t, body, patched)
}

func TestClient_SetStatus(t *testing.T) {
	t.Parallel()

	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/platform/statuses/abc123", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "failure", payload["state"])
		assert.Equal(t, "mergeguard/risk", payload["context"])
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{}`)
	}))

	require.NoError(t, client.SetStatus(context.Background(), "abc123", "failure", "risk 82/100"))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[]`)
	}))

	_, err := client.OpenProposals(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message": "Not Found"}`)
	}))

	_, err := client.Proposal(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 1, attempts)
}
