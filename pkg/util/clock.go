package util

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }

// Countdown counts a trading period down one second at a time. Each
// tick is scheduled off absolute elapsed wall-clock time rather than a
// fixed delay, so timer slop never accumulates into drift over a long
// period. It is read-only with respect to trading state.
type Countdown struct {
	clock Clock

	mu        sync.Mutex
	remaining int
}

// NewCountdown builds a countdown of the given length in seconds.
func NewCountdown(clock Clock, seconds int) *Countdown {
	return &Countdown{clock: clock, remaining: seconds}
}

// Remaining returns the seconds left in the period.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Run ticks until the countdown reaches zero or the context is
// canceled. onTick, if non-nil, receives the remaining seconds after
// each tick.
func (c *Countdown) Run(ctx context.Context, onTick func(remaining int)) {
	start := c.clock.Now()
	for n := 1; ; n++ {
		c.mu.Lock()
		if c.remaining <= 0 {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		// Schedule tick n at start+n seconds, compensating for however
		// late the previous tick fired.
		wait := start.Add(time.Duration(n) * time.Second).Sub(c.clock.Now())
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(wait):
		}

		c.mu.Lock()
		c.remaining--
		left := c.remaining
		c.mu.Unlock()

		if onTick != nil {
			onTick(left)
		}
		if left <= 0 {
			return
		}
	}
}
