package engine

import "sync"

// eventQueue is a thread-safe FIFO queue for gesture events.
//
// Hosts that receive pointer input on their own threads enqueue here while
// the Document's Run loop dequeues, preserving the single-writer mutation
// guarantee. The queue is unbounded so a fast pointer stream never blocks
// the input thread.
//
// A buffered signal channel (size 1) coalesces wakeups and enables
// context-aware waiting in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []GestureEvent
	closed bool
	signal chan struct{}
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]GestureEvent, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e GestureEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking signal; the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (GestureEvent{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (GestureEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return GestureEvent{}, false
	}

	e := q.events[0]
	if len(q.events) == 1 {
		// Reset to empty, keeping the original capacity.
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available. Use
// with select alongside ctx.Done(). A wakeup is a hint, not a guarantee:
// the coalescing buffer can hold a stale token after a drain, so callers
// must re-check the queue rather than treat an empty wakeup as closure.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// IsClosed reports whether Close has been called.
func (q *eventQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued and wakes any
// blocked waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
