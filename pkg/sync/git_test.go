package sync

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_AUTHOR_NAME", "anchor")
	t.Setenv("GIT_AUTHOR_EMAIL", "anchor@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "anchor")
	t.Setenv("GIT_COMMITTER_EMAIL", "anchor@example.com")
}

func newGit(dir string) *Git {
	return New(dir, io.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}

func TestInitCreatesRepoAndRemote(t *testing.T) {
	requireGit(t)
	dir := filepath.Join(t.TempDir(), "data")
	g := newGit(dir)
	ctx := context.Background()

	assert.False(t, g.IsRepo())
	require.NoError(t, g.Init(ctx, ""))
	assert.True(t, g.IsRepo())

	require.NoError(t, g.Init(ctx, "https://example.com/goals.git"))
	assert.Equal(t, "https://example.com/goals.git", gitOutput(t, dir, "remote", "get-url", "origin"))

	require.NoError(t, g.Init(ctx, "https://example.com/other.git"))
	assert.Equal(t, "https://example.com/other.git", gitOutput(t, dir, "remote", "get-url", "origin"))
}

func TestSyncRequiresRepo(t *testing.T) {
	err := newGit(t.TempDir()).Sync(context.Background())
	assert.ErrorContains(t, err, "not a git repository")
}

func TestSyncCommitsAndPushes(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	remote := filepath.Join(t.TempDir(), "remote.git")
	require.NoError(t, exec.Command("git", "init", "--bare", remote).Run())

	dir := t.TempDir()
	g := newGit(dir)
	require.NoError(t, g.Init(ctx, remote))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "goal.md"), []byte("---\nid: g1\n---\n"), 0644))

	require.NoError(t, g.Sync(ctx))
	assert.Empty(t, gitOutput(t, dir, "status", "--porcelain"))
	assert.Contains(t, gitOutput(t, dir, "log", "-1", "--format=%s"), "sync ")
	assert.Equal(t, gitOutput(t, dir, "rev-parse", "HEAD"), gitOutput(t, remote, "rev-parse", "HEAD"))

	// A second sync has an upstream and nothing to commit.
	require.NoError(t, g.Sync(ctx))
}

func TestSyncWithoutRemoteCommitsLocally(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	g := newGit(dir)
	require.NoError(t, g.Init(ctx, ""))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "goal.md"), []byte("x"), 0644))

	require.NoError(t, g.Sync(ctx))
	assert.Empty(t, gitOutput(t, dir, "status", "--porcelain"))
}
