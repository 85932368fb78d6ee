// Package session implements the per-workspace activity timer and the
// registry that replicates it across every open workspace root.
//
// Each Session owns a goroutine that serializes every state transition:
// activity pulses, timer fires, commit completions, and snapshot
// requests all pass through one select loop, so no two transitions for
// the same workspace ever interleave. Sessions for different roots
// share no mutable state.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/worklog/internal/logfile"
	"github.com/fakeyudi/worklog/internal/notify"
)

// defaultCommitTimeout bounds how long teardown waits for an in-flight
// commit before detaching from it.
const defaultCommitTimeout = 5 * time.Second

// Committer stages and commits a workspace's log file as a unit.
type Committer interface {
	Commit(ctx context.Context, root, logPath string, loggedFor time.Duration, at time.Time) error
}

// RepoProbe reports whether a workspace root has an initialized repository.
type RepoProbe func(root string) bool

// Options configures sessions created by a Registry.
type Options struct {
	Duration  time.Duration // countdown budget per session, must be > 0
	Committer Committer
	Probe     RepoProbe
	Notifier  notify.Notifier

	// CommitTimeout bounds the teardown wait for an in-flight commit.
	// Zero means defaultCommitTimeout.
	CommitTimeout time.Duration

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Session owns the countdown timer, elapsed-time bookkeeping, and
// log/commit triggering for exactly one workspace root.
type Session struct {
	ID      string
	Root    string
	LogPath string

	duration      time.Duration
	committer     Committer
	probe         RepoProbe
	notify        notify.Notifier
	now           func() time.Time
	commitTimeout time.Duration

	pulses     chan struct{}
	snapshots  chan chan Snapshot
	quit       chan struct{}
	stopped    chan struct{}
	commitDone chan error

	// State below is owned by the loop goroutine and never touched
	// from outside it.
	cd           countdown
	timer        *time.Timer
	inFlight     bool
	cancelCommit context.CancelFunc
	fires        int
	commits      int
	lastErr      error
}

// Snapshot is a point-in-time view of a session, safe to read from any
// goroutine.
type Snapshot struct {
	ID             string
	Root           string
	Duration       time.Duration
	Remaining      time.Duration
	Fires          int
	Commits        int
	CommitInFlight bool
	LastErr        string
}

// newSession creates and starts a session for root. The countdown
// begins immediately at the full budget.
func newSession(root string, opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.CommitTimeout
	if timeout == 0 {
		timeout = defaultCommitTimeout
	}
	s := &Session{
		ID:            uuid.New().String(),
		Root:          root,
		LogPath:       logfile.PathFor(root),
		duration:      opts.Duration,
		committer:     opts.Committer,
		probe:         opts.Probe,
		notify:        opts.Notifier,
		now:           now,
		commitTimeout: timeout,
		pulses:        make(chan struct{}, 1),
		snapshots:     make(chan chan Snapshot),
		quit:          make(chan struct{}),
		stopped:       make(chan struct{}),
		commitDone:    make(chan error, 1),
	}
	s.cd = newCountdown(s.duration, s.now())
	go s.loop()
	return s
}

// Pulse signals user activity in the session's workspace. It never
// blocks; pulses arriving while one is already queued coalesce, which
// is harmless because banking depends on elapsed time, not pulse count.
func (s *Session) Pulse() {
	select {
	case s.pulses <- struct{}{}:
	default:
	}
}

// Snapshot returns the session's current state. ok is false once the
// session has been closed.
func (s *Session) Snapshot() (snap Snapshot, ok bool) {
	req := make(chan Snapshot, 1)
	select {
	case s.snapshots <- req:
		return <-req, true
	case <-s.stopped:
		return Snapshot{}, false
	}
}

// Close cancels the pending wake-up and stops the session's loop. If a
// commit is in flight it is awaited for a bounded time, then detached.
// Close is idempotent and returns once the loop has exited.
func (s *Session) Close() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.stopped
}

func (s *Session) loop() {
	defer close(s.stopped)

	s.timer = time.NewTimer(s.cd.remaining)
	defer s.timer.Stop()

	for {
		select {
		case <-s.quit:
			s.drainCommit()
			return
		case <-s.pulses:
			s.handlePulse()
		case <-s.timer.C:
			s.handleFire()
		case err := <-s.commitDone:
			s.finishCommit(err)
		case req := <-s.snapshots:
			req <- s.currentSnapshot()
		}
	}
}

// handlePulse banks the elapsed slice and reschedules the wake-up for
// the reduced remaining budget. Cancel-then-reschedule happens inside
// one loop turn, so at most one wake-up is ever pending.
func (s *Session) handlePulse() {
	remaining := s.cd.bank(s.now())
	if !s.timer.Stop() {
		// Timer already fired; drop the stale wake-up so the next
		// receive observes the rescheduled one.
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.timer.Reset(remaining)
	s.notify.Debugf("%s: pulse, %s remaining", s.Root, remaining)
}

// handleFire writes a log entry, kicks off the asynchronous commit, and
// restarts the countdown at the full budget.
func (s *Session) handleFire() {
	now := s.now()
	s.fires++

	entry := logfile.Entry{LoggedFor: s.duration, At: now}
	if err := logfile.Append(s.LogPath, entry); err != nil {
		s.lastErr = err
		s.notify.Errorf("%s: %v", s.Root, err)
	} else {
		s.notify.Debugf("%s: logged %s", s.Root, s.duration)
		s.startCommit(entry)
	}

	s.cd.reset(now)
	s.timer.Reset(s.cd.remaining)
}

// startCommit launches the commit for a freshly written entry. The log
// write already succeeded; commit failures are reported and never
// rolled back or retried.
func (s *Session) startCommit(entry logfile.Entry) {
	if !s.probe(s.Root) {
		s.notify.Infof("%s: no git repository, commit skipped", s.Root)
		return
	}
	if s.inFlight {
		// Only reachable with a very short configured duration.
		s.notify.Warnf("%s: previous commit still running, skipping this one", s.Root)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.inFlight = true
	s.cancelCommit = cancel
	go func() {
		// commitDone is buffered, so this send cannot block even if
		// teardown detached from the commit.
		s.commitDone <- s.committer.Commit(ctx, s.Root, s.LogPath, entry.LoggedFor, entry.At)
	}()
}

func (s *Session) finishCommit(err error) {
	s.inFlight = false
	if s.cancelCommit != nil {
		s.cancelCommit()
		s.cancelCommit = nil
	}
	if err != nil {
		s.lastErr = err
		s.notify.Errorf("%s: commit failed: %v", s.Root, err)
		return
	}
	s.commits++
	s.notify.Successf("%s: committed %s", s.Root, logfile.Name)
}

// drainCommit awaits an in-flight commit at teardown, bounded by the
// configured timeout, then cancels and detaches.
func (s *Session) drainCommit() {
	if !s.inFlight {
		return
	}
	wait := time.NewTimer(s.commitTimeout)
	defer wait.Stop()
	select {
	case err := <-s.commitDone:
		s.finishCommit(err)
	case <-wait.C:
		s.notify.Warnf("%s: commit still running at teardown, detaching", s.Root)
		if s.cancelCommit != nil {
			s.cancelCommit()
		}
	}
}

func (s *Session) currentSnapshot() Snapshot {
	snap := Snapshot{
		ID:             s.ID,
		Root:           s.Root,
		Duration:       s.duration,
		Remaining:      s.cd.left(s.now()),
		Fires:          s.fires,
		Commits:        s.commits,
		CommitInFlight: s.inFlight,
	}
	if s.lastErr != nil {
		snap.LastErr = s.lastErr.Error()
	}
	return snap
}
