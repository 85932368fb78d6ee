package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fakeyudi/worklog/internal/logfile"
	"github.com/fakeyudi/worklog/internal/notify"
)

// fakeCommitter records Commit calls and optionally fails or stalls.
type fakeCommitter struct {
	mu    sync.Mutex
	calls []fakeCall
	err   error
	delay time.Duration
}

type fakeCall struct {
	root      string
	logPath   string
	loggedFor time.Duration
	at        time.Time
}

func (f *fakeCommitter) Commit(ctx context.Context, root, logPath string, loggedFor time.Duration, at time.Time) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{root: root, logPath: logPath, loggedFor: loggedFor, at: at})
	return f.err
}

func (f *fakeCommitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func alwaysRepo(string) bool { return true }
func neverRepo(string) bool  { return false }

func startSession(t *testing.T, root string, opts Options) *Session {
	t.Helper()
	if opts.Notifier == nil {
		opts.Notifier = &notify.Memory{}
	}
	if opts.Committer == nil {
		opts.Committer = &fakeCommitter{}
	}
	if opts.Probe == nil {
		opts.Probe = neverRepo
	}
	s := newSession(root, opts)
	t.Cleanup(s.Close)
	return s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func fires(s *Session) int {
	snap, ok := s.Snapshot()
	if !ok {
		return -1
	}
	return snap.Fires
}

func TestFireWritesEntryAndCommits(t *testing.T) {
	root := t.TempDir()
	committer := &fakeCommitter{}
	s := startSession(t, root, Options{
		Duration:  80 * time.Millisecond,
		Committer: committer,
		Probe:     alwaysRepo,
	})

	if !waitFor(t, 2*time.Second, func() bool { return fires(s) >= 1 }) {
		t.Fatal("timer never fired")
	}
	s.Close()

	entries, err := logfile.Read(s.LogPath)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("fire produced no log entry")
	}
	first := entries[0]
	if first.LoggedFor != 80*time.Millisecond {
		t.Errorf("logged duration = %v, want 80ms", first.LoggedFor)
	}
	if first.At.IsZero() {
		t.Error("log entry timestamp is zero")
	}

	if !waitFor(t, time.Second, func() bool { return committer.callCount() >= 1 }) {
		t.Fatal("fire produced no commit attempt")
	}
	committer.mu.Lock()
	call := committer.calls[0]
	committer.mu.Unlock()
	if call.root != root {
		t.Errorf("commit root = %q, want %q", call.root, root)
	}
	if call.logPath != logfile.PathFor(root) {
		t.Errorf("commit logPath = %q, want %q", call.logPath, logfile.PathFor(root))
	}
}

func TestContinuousPulsesPreventFire(t *testing.T) {
	root := t.TempDir()
	s := startSession(t, root, Options{Duration: time.Second})

	// Pulse every 20ms; each pulse banks ~20ms, so after ~200ms of
	// activity the budget is still far above zero and nothing fires.
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		s.Pulse()
	}

	snap, ok := s.Snapshot()
	if !ok {
		t.Fatal("session closed unexpectedly")
	}
	if snap.Fires != 0 {
		t.Errorf("fires = %d during continuous activity, want 0", snap.Fires)
	}
	if snap.Remaining > time.Second {
		t.Errorf("remaining = %v exceeds budget", snap.Remaining)
	}
	if logfile.Exists(s.LogPath) {
		t.Error("log file created without a fire")
	}
}

func TestPulseBanksButNeverRefills(t *testing.T) {
	root := t.TempDir()
	s := startSession(t, root, Options{Duration: time.Hour})

	time.Sleep(30 * time.Millisecond)
	s.Pulse()

	snap, _ := s.Snapshot()
	if snap.Remaining >= time.Hour {
		t.Errorf("remaining = %v, want < 1h after banking", snap.Remaining)
	}
	before := snap.Remaining

	s.Pulse()
	snap, _ = s.Snapshot()
	if snap.Remaining > before {
		t.Errorf("remaining increased from %v to %v without a fire", before, snap.Remaining)
	}
}

func TestNoRepositorySkipsCommit(t *testing.T) {
	root := t.TempDir()
	committer := &fakeCommitter{}
	mem := &notify.Memory{}
	s := startSession(t, root, Options{
		Duration:  60 * time.Millisecond,
		Committer: committer,
		Probe:     neverRepo,
		Notifier:  mem,
	})

	if !waitFor(t, 2*time.Second, func() bool { return fires(s) >= 1 }) {
		t.Fatal("timer never fired")
	}
	s.Close()

	if committer.callCount() != 0 {
		t.Errorf("commit attempted without a repository: %d calls", committer.callCount())
	}
	if !logfile.Exists(s.LogPath) {
		t.Error("log write skipped; it must happen even without a repository")
	}
	if !mem.Contains("info", "no git repository") {
		t.Error("missing informational notice about the skipped commit")
	}
}

func TestCommitFailureDoesNotStopTimer(t *testing.T) {
	root := t.TempDir()
	committer := &fakeCommitter{err: errors.New("index.lock held")}
	mem := &notify.Memory{}
	s := startSession(t, root, Options{
		Duration:  50 * time.Millisecond,
		Committer: committer,
		Probe:     alwaysRepo,
		Notifier:  mem,
	})

	if !waitFor(t, 3*time.Second, func() bool { return fires(s) >= 2 }) {
		t.Fatal("timer did not keep firing after a commit failure")
	}
	s.Close()

	entries, err := logfile.Read(s.LogPath)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("entries = %d, want at least 2; the log is never rolled back", len(entries))
	}
	if !mem.Contains("error", "commit failed") {
		t.Error("missing failure notification for the commit")
	}
}

func TestRepeatedFiresAppendMonotonically(t *testing.T) {
	root := t.TempDir()
	s := startSession(t, root, Options{Duration: 40 * time.Millisecond})

	if !waitFor(t, 3*time.Second, func() bool { return fires(s) >= 3 }) {
		t.Fatal("timer did not fire repeatedly")
	}
	s.Close()

	entries, err := logfile.Read(s.LogPath)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) < 3 {
		t.Fatalf("entries = %d, want at least 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].At.Before(entries[i-1].At) {
			t.Errorf("entry %d timestamp %v precedes entry %d %v", i, entries[i].At, i-1, entries[i-1].At)
		}
	}
}

func TestCloseAwaitsInFlightCommit(t *testing.T) {
	root := t.TempDir()
	committer := &fakeCommitter{delay: 80 * time.Millisecond}
	s := startSession(t, root, Options{
		Duration:      40 * time.Millisecond,
		Committer:     committer,
		Probe:         alwaysRepo,
		CommitTimeout: 2 * time.Second,
	})

	// Wait for the fire, then close while the commit is still stalling.
	if !waitFor(t, 2*time.Second, func() bool { return fires(s) >= 1 }) {
		t.Fatal("timer never fired")
	}
	s.Close()

	if committer.callCount() < 1 {
		t.Error("Close returned before the in-flight commit completed")
	}
}

func TestCloseDetachesFromStalledCommit(t *testing.T) {
	root := t.TempDir()
	committer := &fakeCommitter{delay: 10 * time.Second}
	mem := &notify.Memory{}
	s := startSession(t, root, Options{
		Duration:      40 * time.Millisecond,
		Committer:     committer,
		Probe:         alwaysRepo,
		Notifier:      mem,
		CommitTimeout: 50 * time.Millisecond,
	})

	if !waitFor(t, 2*time.Second, func() bool { return fires(s) >= 1 }) {
		t.Fatal("timer never fired")
	}

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a stalled commit past its timeout")
	}
	if !mem.Contains("warn", "detaching") {
		t.Error("missing detach warning for the stalled commit")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	root := t.TempDir()
	s := startSession(t, root, Options{Duration: time.Hour})
	s.Close()
	s.Close()

	if _, ok := s.Snapshot(); ok {
		t.Error("Snapshot reported ok after Close")
	}
}
