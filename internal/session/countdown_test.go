package session

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Property: under any sequence of pulses arriving before the budget is
// exhausted, remaining is monotonically non-increasing and never
// resets to the full duration without a fire.
func TestCountdownMonotoneUnderPulses(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		duration := time.Duration(rapid.Int64Range(int64(time.Second), int64(time.Hour)).Draw(rt, "duration"))
		start := time.Unix(1_700_000_000, 0)

		cd := newCountdown(duration, start)
		if cd.remaining != duration {
			rt.Fatalf("initial remaining = %v, want %v", cd.remaining, duration)
		}

		now := start
		prev := cd.remaining
		numPulses := rapid.IntRange(1, 50).Draw(rt, "num_pulses")
		for i := 0; i < numPulses; i++ {
			gap := time.Duration(rapid.Int64Range(0, int64(duration)/10).Draw(rt, "gap"))
			now = now.Add(gap)

			got := cd.bank(now)
			if got > prev {
				rt.Fatalf("remaining increased without fire: %v -> %v", prev, got)
			}
			if got < 0 || got > duration {
				rt.Fatalf("remaining %v outside [0, %v]", got, duration)
			}
			prev = got
		}
	})
}

func TestCountdownBanksElapsedExactly(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	cd := newCountdown(10*time.Minute, start)

	got := cd.bank(start.Add(3 * time.Minute))
	if got != 7*time.Minute {
		t.Errorf("remaining after 3m = %v, want 7m", got)
	}

	// A second pulse banks only the slice since the first pulse.
	got = cd.bank(start.Add(4 * time.Minute))
	if got != 6*time.Minute {
		t.Errorf("remaining after another 1m = %v, want 6m", got)
	}
}

func TestCountdownClampsAtZero(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	cd := newCountdown(time.Minute, start)

	if got := cd.bank(start.Add(time.Hour)); got != 0 {
		t.Errorf("remaining = %v, want 0", got)
	}
	// Banking again stays at zero.
	if got := cd.bank(start.Add(2 * time.Hour)); got != 0 {
		t.Errorf("remaining = %v, want 0", got)
	}
}

func TestCountdownBackwardsClockBanksNothing(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	cd := newCountdown(time.Minute, start)

	if got := cd.bank(start.Add(-time.Hour)); got != time.Minute {
		t.Errorf("remaining = %v, want full minute", got)
	}
}

func TestCountdownResetRefillsBudget(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	cd := newCountdown(10*time.Minute, start)
	cd.bank(start.Add(9 * time.Minute))

	fired := start.Add(10 * time.Minute)
	cd.reset(fired)
	if cd.remaining != 10*time.Minute {
		t.Errorf("remaining after reset = %v, want full budget", cd.remaining)
	}
	if got := cd.left(fired.Add(time.Minute)); got != 9*time.Minute {
		t.Errorf("left = %v, want 9m", got)
	}
}

func TestCountdownLeftNeverNegative(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	cd := newCountdown(time.Minute, start)
	if got := cd.left(start.Add(time.Hour)); got != 0 {
		t.Errorf("left = %v, want 0", got)
	}
}
