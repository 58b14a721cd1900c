package history

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the quiet window after the last qualifying
// event before a debounced commit fires. It is a tunable constant, not a
// correctness-critical deadline; it only affects how many history entries
// a burst of gestures produces.
const DefaultDebounceWindow = 280 * time.Millisecond

// Debouncer coalesces a burst of commit requests into one trailing call.
//
// Every Trigger cancels and replaces the pending timer ("trailing
// debounce", never "throttle"), so a wheel burst or slider drag produces a
// single history entry once the stream goes quiet.
//
// The deferred function runs on a timer goroutine; callers that need
// single-writer semantics must re-serialize inside fn (engine.Document
// does this with its mutex).
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// NewDebouncer creates a debouncer with the given quiet window. A
// non-positive window falls back to DefaultDebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Trigger schedules fn to run after the quiet window, replacing any
// previously pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	d.timer = time.AfterFunc(d.window, d.fire)
}

// fire runs the pending function, if one is still scheduled.
func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Flush runs any pending call immediately and cancels its timer. Used on
// gesture finalization, document dispose, and in tests where waiting out
// the window would be flaky.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop cancels any pending call without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
	d.timer = nil
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
