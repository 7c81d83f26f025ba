// Package sync keeps the data directory in a git repository and synchronizes
// it with a remote.
package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Git runs git against one data directory. Command output goes to Out.
type Git struct {
	Dir    string
	Out    io.Writer
	Logger *slog.Logger
	Now    func() time.Time
}

// New returns a Git for dir that writes command output to out.
func New(dir string, out io.Writer, logger *slog.Logger) *Git {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Git{Dir: dir, Out: out, Logger: logger, Now: time.Now}
}

func (g *Git) cmd(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.Dir}, args...)...)
	cmd.Stdout = g.Out
	cmd.Stderr = g.Out
	return cmd
}

// quiet runs git with its output discarded, for probes whose failure is an
// answer rather than an error.
func (g *Git) quiet(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.Dir}, args...)...)
	return cmd.Run()
}

// IsRepo reports whether the data directory is already a git repository.
func (g *Git) IsRepo() bool {
	_, err := os.Stat(filepath.Join(g.Dir, ".git"))
	return err == nil
}

// Init makes the data directory a git repository if it is not one yet and,
// when remote is non-empty, points origin at it.
func (g *Git) Init(ctx context.Context, remote string) error {
	if err := os.MkdirAll(g.Dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if !g.IsRepo() {
		if err := g.cmd(ctx, "init").Run(); err != nil {
			return fmt.Errorf("git init: %w", err)
		}
		g.Logger.Info("initialized repository", "dir", g.Dir)
	}

	if remote == "" {
		return nil
	}

	// Remove existing origin first (ignore error if doesn't exist)
	g.quiet(ctx, "remote", "remove", "origin")
	if err := g.cmd(ctx, "remote", "add", "origin", remote).Run(); err != nil {
		return fmt.Errorf("setting remote: %w", err)
	}
	g.Logger.Info("remote set", "remote", remote)
	return nil
}

// Sync commits local changes, pulls with rebase (falling back to merge) and
// pushes. A repository without an upstream branch skips the pull and sets
// one on push.
func (g *Git) Sync(ctx context.Context) error {
	if !g.IsRepo() {
		return fmt.Errorf("not a git repository. Run 'anchor init' first")
	}

	// 1. Stage and commit any uncommitted local changes
	g.Logger.Debug("staging changes", "dir", g.Dir)
	if err := g.cmd(ctx, "add", "-A").Run(); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}
	if err := g.quiet(ctx, "diff", "--cached", "--quiet"); err != nil {
		msg := "sync " + g.Now().Format("2006-01-02 15:04:05")
		if err := g.cmd(ctx, "commit", "-m", msg).Run(); err != nil {
			return fmt.Errorf("committing changes: %w", err)
		}
	}

	if g.quiet(ctx, "remote", "get-url", "origin") != nil {
		g.Logger.Info("no remote configured, committed locally")
		return nil
	}

	hasUpstream := g.quiet(ctx, "rev-parse", "--abbrev-ref", "@{u}") == nil
	if hasUpstream {
		// 2. Try pull --rebase
		g.Logger.Debug("pulling")
		if err := g.cmd(ctx, "pull", "--rebase").Run(); err != nil {
			// 3. Rebase failed, abort and try merge
			g.Logger.Warn("rebase failed, trying merge", "error", err)
			g.quiet(ctx, "rebase", "--abort")

			if err := g.cmd(ctx, "pull", "--no-rebase").Run(); err != nil {
				// 4. Merge also failed, abort and report
				g.quiet(ctx, "merge", "--abort")
				return fmt.Errorf("sync failed: could not rebase or merge. Resolve conflicts manually")
			}
		}
	}

	// 5. Push
	g.Logger.Debug("pushing")
	push := []string{"push"}
	if !hasUpstream {
		push = append(push, "-u", "origin", "HEAD")
	}
	if err := g.cmd(ctx, push...).Run(); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	g.Logger.Info("sync complete", "dir", g.Dir)
	return nil
}
