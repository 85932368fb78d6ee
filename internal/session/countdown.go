package session

import "time"

// countdown implements the banked-remaining-time model for one
// workspace. Each activity pulse banks the slice elapsed since the last
// resume by subtracting it from the remaining budget, so the countdown
// reflects accumulated coding time rather than wall-clock time spanning
// idle gaps. The budget only ever decreases until a fire resets it.
type countdown struct {
	duration   time.Duration // configured budget, > 0
	remaining  time.Duration // 0 <= remaining <= duration
	lastResume time.Time     // instant the countdown last (re)started
}

func newCountdown(d time.Duration, now time.Time) countdown {
	return countdown{duration: d, remaining: d, lastResume: now}
}

// bank subtracts the time elapsed since lastResume from the remaining
// budget, clamped at zero, and restarts the countdown at now. Returns
// the updated remaining budget.
func (c *countdown) bank(now time.Time) time.Duration {
	elapsed := now.Sub(c.lastResume)
	if elapsed < 0 {
		// Clock went backwards; bank nothing.
		elapsed = 0
	}
	c.remaining -= elapsed
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.lastResume = now
	return c.remaining
}

// reset refills the budget after a fire.
func (c *countdown) reset(now time.Time) {
	c.remaining = c.duration
	c.lastResume = now
}

// left returns the live remaining budget as of now, without banking.
func (c *countdown) left(now time.Time) time.Duration {
	left := c.remaining - now.Sub(c.lastResume)
	if left < 0 {
		return 0
	}
	return left
}
