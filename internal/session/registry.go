package session

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fakeyudi/worklog/internal/logfile"
	"github.com/fakeyudi/worklog/internal/notify"
)

// Registry holds one Session per open workspace root and implements the
// lifecycle operations triggered by the command surface: activate,
// restart, and disable.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	notify   notify.Notifier
	disabled bool
}

// NewRegistry creates an empty registry. Options are applied to every
// session it creates.
func NewRegistry(opts Options) *Registry {
	if opts.Notifier == nil {
		opts.Notifier = notify.New(false)
	}
	return &Registry{
		sessions: make(map[string]*Session),
		opts:     opts,
		notify:   opts.Notifier,
	}
}

// Add creates and starts a session for root. The root is cleaned to an
// absolute path, which is the registry key.
func (r *Registry) Add(root string) (*Session, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[abs]; ok {
		return nil, fmt.Errorf("workspace already tracked: %s", abs)
	}
	s := newSession(abs, r.opts)
	r.sessions[abs] = s
	r.notify.Debugf("%s: session %s started, %s budget", abs, s.ID, r.opts.Duration)
	return s, nil
}

// Pulse routes an activity signal to the session for root, if any.
func (r *Registry) Pulse(root string) {
	r.mu.RLock()
	s := r.sessions[root]
	r.mu.RUnlock()
	if s != nil {
		s.Pulse()
	}
}

// Activate acknowledges that tracking is already running. Sessions are
// created once, when their roots are registered; activate is a no-op
// beyond the acknowledgement.
func (r *Registry) Activate() {
	r.mu.RLock()
	n := len(r.sessions)
	r.mu.RUnlock()
	r.notify.Infof("worklog active, tracking %d workspace(s)", n)
}

// Restart tears down every session and recreates a fresh one per
// tracked root, each starting at the full budget.
func (r *Registry) Restart() {
	r.mu.Lock()
	defer r.mu.Unlock()

	roots := make([]string, 0, len(r.sessions))
	for root := range r.sessions {
		roots = append(roots, root)
	}
	r.teardownLocked()

	r.sessions = make(map[string]*Session, len(roots))
	for _, root := range roots {
		r.sessions[root] = newSession(root, r.opts)
	}
	r.notify.Infof("worklog restarted, %d workspace(s)", len(roots))
}

// Disable tears down every session and does not recreate them.
func (r *Registry) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		return
	}
	r.teardownLocked()
	r.sessions = make(map[string]*Session)
	r.disabled = true
	r.notify.Infof("worklog disabled")
}

// teardownLocked closes every session and applies the deactivation
// policy to its log file. One root's failure never affects another.
func (r *Registry) teardownLocked() {
	for _, s := range r.sessions {
		s.Close()
		r.cleanupLog(s)
	}
}

// cleanupLog applies the deactivation policy: without a repository the
// log file is deleted best-effort; with one it is left for version
// control, with a warning.
func (r *Registry) cleanupLog(s *Session) {
	if r.opts.Probe != nil && r.opts.Probe(s.Root) {
		if logfile.Exists(s.LogPath) {
			r.notify.Warnf("%s: %s kept, expected to be under version control", s.Root, logfile.Name)
		}
		return
	}
	if !logfile.Exists(s.LogPath) {
		return
	}
	if err := logfile.Delete(s.LogPath); err != nil {
		r.notify.Errorf("%s: %v", s.Root, err)
		return
	}
	r.notify.Debugf("deleted %s", s.LogPath)
}

// Snapshots returns a snapshot per live session, sorted by root.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		if snap, ok := s.Snapshot(); ok {
			snaps = append(snaps, snap)
		}
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Root < snaps[j].Root })
	return snaps
}

// Roots returns the tracked workspace roots, sorted.
func (r *Registry) Roots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roots := make([]string, 0, len(r.sessions))
	for root := range r.sessions {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}
