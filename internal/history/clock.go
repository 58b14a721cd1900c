package history

import "sync/atomic"

// Clock is a monotonic logical clock stamping history snapshots.
//
// Sequence numbers give log lines and persisted revisions a total order
// that survives replay; wall-clock timestamps are never used for ordering.
//
// Thread-safety: safe for concurrent use (atomic operations), although the
// engine's single-writer design means one goroutine typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number. Used
// when resuming a document whose persisted revision is known.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
