package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard/git"
)

// initRepo creates a throwaway git repository with commits on one file whose
// subjects alternate between normal work and corrections.
func initRepo(t *testing.T, subjects []string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init", "-q")
	path := filepath.Join(dir, "auth", "session.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	for _, subject := range subjects {
		require.NoError(t, os.WriteFile(path, []byte(subject+"\n"), 0o644))
		run("add", "auth/session.py")
		run("commit", "-q", "--allow-empty", "-m", subject)
	}
	return dir
}

func TestChurnProvider(t *testing.T) {
	t.Parallel()

	dir := initRepo(t, []string{
		"add session validation",
		"fix: expiry off by one",
		"extend token claims",
		"Revert \"extend token claims\"",
	})

	provider := git.NewChurnProvider(dir)
	rate, err := provider.Churn(context.Background(), "auth/session.py")

	require.NoError(t, err)
	assert.InDelta(t, 0.5, rate, 1e-9, "2 of 4 commits are corrections")

	// Memoized: a second query returns the same value without error even if
	// the repository disappears.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, ".git")))
	again, err := provider.Churn(context.Background(), "auth/session.py")
	require.NoError(t, err)
	assert.Equal(t, rate, again)
}

func TestChurnProvider_FileWithoutHistory(t *testing.T) {
	t.Parallel()

	dir := initRepo(t, []string{"initial commit"})

	provider := git.NewChurnProvider(dir)
	rate, err := provider.Churn(context.Background(), "never/committed.py")

	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestChurnProvider_MissingRepository(t *testing.T) {
	t.Parallel()

	provider := git.NewChurnProvider(t.TempDir())
	_, err := provider.Churn(context.Background(), "auth/session.py")
	assert.Error(t, err)
}
