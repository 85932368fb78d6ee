// Package gitx wraps the git subprocess interactions worklog needs:
// probing a workspace for an initialized repository and committing the
// activity log file.
package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotRepository indicates the workspace root has no initialized repository.
var ErrNotRepository = errors.New("not a git repository")

// Runner executes a git command in dir and returns its stdout.
// This abstraction allows mocking in tests.
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// defaultRunner runs git as a real subprocess, capturing stderr for
// error reporting.
func defaultRunner(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &CommitError{
			Operation: args[0],
			Args:      args[1:],
			Stderr:    strings.TrimSpace(stderr.String()),
			Err:       err,
		}
	}
	return stdout.String(), nil
}

// IsRepository reports whether root contains git metadata. A plain file
// named .git (worktrees, submodules) counts as initialized too.
func IsRepository(root string) bool {
	_, err := os.Stat(filepath.Join(root, ".git"))
	return err == nil
}

// Committer stages and commits a workspace's log file as a unit.
type Committer struct {
	Prefix string // commit message prefix, e.g. "worklog"
	Runner Runner // if nil, uses the real git subprocess
}

// Commit stages logPath and commits it with a message derived from the
// logged duration and timestamp. The two git invocations are sequential;
// if either fails the whole call fails and nothing is retried.
func (c *Committer) Commit(ctx context.Context, root, logPath string, loggedFor time.Duration, at time.Time) error {
	runner := c.Runner
	if runner == nil {
		runner = defaultRunner
	}

	rel := logPath
	if r, err := filepath.Rel(root, logPath); err == nil {
		rel = r
	}

	if _, err := runner(ctx, root, "add", rel); err != nil {
		// The repository may have vanished between the probe and here.
		if NotRepository(err) {
			return fmt.Errorf("%s: %w", root, ErrNotRepository)
		}
		return fmt.Errorf("staging %s: %w", rel, err)
	}

	prefix := c.Prefix
	if prefix == "" {
		prefix = "worklog"
	}
	msg := fmt.Sprintf("%s: %s logged at %s", prefix, loggedFor, at.Format(time.RFC3339))
	if _, err := runner(ctx, root, "commit", "-m", msg); err != nil {
		return fmt.Errorf("committing %s: %w", rel, err)
	}
	return nil
}

// CommitError captures a failed git invocation: the subcommand, its
// arguments, and whatever git printed to stderr.
type CommitError struct {
	Operation string
	Args      []string
	Stderr    string
	Err       error
}

func (e *CommitError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// NotRepository reports whether err came from running git outside a
// repository (git exits with code 128 for this).
func NotRepository(err error) bool {
	if errors.Is(err, ErrNotRepository) {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 128
	}
	return false
}
