// Package watcher turns filesystem events in a workspace root into
// undifferentiated activity pulses. It is the activity signal source
// for the session timers: any Write or Create under the root, minus
// ignored paths, counts as "the user is editing".
package watcher

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/worklog/internal/logfile"
)

// Watch starts a recursive fsnotify watcher on root and invokes pulse
// for every qualifying Write/Create event until ctx is cancelled.
// The workspace's own activity log and the .git tree never pulse —
// otherwise every timer fire would count as user activity.
func Watch(ctx context.Context, root string, ignorePatterns []string, pulse func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Walk the directory tree and add a watcher for every subdirectory.
	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	}); err != nil {
		return err
	}

	f := filter{root: root, patterns: loadIgnorePatterns(root, ignorePatterns)}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if f.ignored(event.Name) {
				continue
			}
			pulse()

			// If a new directory was created, watch it too.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.Add(event.Name)
				}
			}

		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}

// filter decides which paths count as activity.
type filter struct {
	root     string
	patterns []string
}

// ignored reports whether path should not produce a pulse.
func (f filter) ignored(path string) bool {
	base := filepath.Base(path)
	if base == logfile.Name || base == ".worklogconfig" {
		return true
	}

	rel := path
	if r, err := filepath.Rel(f.root, path); err == nil {
		rel = r
	}
	if rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
		return true
	}

	for _, pattern := range f.patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// loadIgnorePatterns merges the configured patterns with those from
// .gitignore and .worklogignore files found in the workspace root.
func loadIgnorePatterns(root string, configured []string) []string {
	patterns := make([]string, len(configured))
	copy(patterns, configured)

	for _, name := range []string{".gitignore", ".worklogignore"} {
		extra, err := readPatternFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		patterns = append(patterns, extra...)
	}
	return patterns
}

// readPatternFile reads a gitignore-style file and returns non-empty,
// non-comment lines.
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(line, "/"))
	}
	return patterns, scanner.Err()
}
