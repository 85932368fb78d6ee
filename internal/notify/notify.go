// Package notify carries user-facing notifications and debug diagnostics.
// Operations in worklog never fail loudly: a commit that could not be
// created or a log file that could not be deleted is reported here and
// the timers keep running.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Notifier is the notification surface used throughout worklog.
// Debugf is diagnostic-only; the remaining methods are shown to the user.
type Notifier interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Successf(format string, args ...any)
}

// New returns a Notifier that writes user-facing lines to stderr and
// routes diagnostics through slog. Debug output is dropped unless
// verbose is set.
func New(verbose bool) Notifier {
	return NewWithOutput(verbose, os.Stderr)
}

// NewWithOutput is New with a custom destination for user-facing lines.
func NewWithOutput(verbose bool, out io.Writer) Notifier {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &stdNotifier{
		out:     out,
		verbose: verbose,
		log:     slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})),
	}
}

type stdNotifier struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	log     *slog.Logger
}

func (n *stdNotifier) Debugf(format string, args ...any) {
	if !n.verbose {
		return
	}
	n.log.Debug(fmt.Sprintf(format, args...))
}

func (n *stdNotifier) Infof(format string, args ...any)    { n.emit("", format, args...) }
func (n *stdNotifier) Warnf(format string, args ...any)    { n.emit("warning: ", format, args...) }
func (n *stdNotifier) Errorf(format string, args ...any)   { n.emit("error: ", format, args...) }
func (n *stdNotifier) Successf(format string, args ...any) { n.emit("", format, args...) }

func (n *stdNotifier) emit(prefix, format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, prefix+format+"\n", args...)
}

// Memory records notifications for inspection. Used in tests and as a
// sink when no user-facing output is wanted.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// Entry is one recorded notification.
type Entry struct {
	Level   string // "debug", "info", "warn", "error", "success"
	Message string
}

func (m *Memory) record(level, format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (m *Memory) Debugf(format string, args ...any)   { m.record("debug", format, args...) }
func (m *Memory) Infof(format string, args ...any)    { m.record("info", format, args...) }
func (m *Memory) Warnf(format string, args ...any)    { m.record("warn", format, args...) }
func (m *Memory) Errorf(format string, args ...any)   { m.record("error", format, args...) }
func (m *Memory) Successf(format string, args ...any) { m.record("success", format, args...) }

// Entries returns a copy of everything recorded so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Contains reports whether any recorded message at the given level
// contains substr. An empty level matches any level.
func (m *Memory) Contains(level, substr string) bool {
	for _, e := range m.Entries() {
		if level != "" && e.Level != level {
			continue
		}
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
