package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every handled event is stamped
// with a strictly increasing seq number, which keeps log output and
// queue diagnostics ordered without wall-clock races.
//
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
