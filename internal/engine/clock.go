package engine

import "sync/atomic"

// LogicalClock hands out commit timestamps. Implemented by Clock
// (production) and testutil.DeterministicClock (tests).
type LogicalClock interface {
	// Next returns a fresh timestamp, strictly greater than any returned
	// before.
	Next() int64

	// Current returns the last timestamp handed out.
	Current() int64

	// Advance moves the clock forward to at least ts. Never moves back.
	Advance(ts int64)
}

// Clock is the engine's monotonic logical clock.
//
// Each fixpoint round is stamped with a strictly increasing timestamp,
// which totally orders fact commits for provenance.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although only Run calls Next().
type Clock struct {
	ts atomic.Int64
}

// NewClock creates a new clock starting at 0. The first round gets 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next timestamp is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.ts.Store(start)
	return c
}

// Next returns the next timestamp and increments the clock.
func (c *Clock) Next() int64 {
	return c.ts.Add(1)
}

// Current returns the last timestamp handed out, 0 before the first.
func (c *Clock) Current() int64 {
	return c.ts.Load()
}

// Advance moves the clock forward to ts if it is behind.
func (c *Clock) Advance(ts int64) {
	for {
		cur := c.ts.Load()
		if cur >= ts || c.ts.CompareAndSwap(cur, ts) {
			return
		}
	}
}
