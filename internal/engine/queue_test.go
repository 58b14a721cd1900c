package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	require.True(t, q.Enqueue(GestureEvent{Kind: GestureDragStart, Index: 0}))
	require.True(t, q.Enqueue(GestureEvent{Kind: GestureDragMove, Index: 0}))
	require.True(t, q.Enqueue(GestureEvent{Kind: GestureDragEnd, Index: 0}))
	assert.Equal(t, 3, q.Len())

	ev, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, GestureDragStart, ev.Kind)
	ev, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, GestureDragMove, ev.Kind)
	ev, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, GestureDragEnd, ev.Kind)

	_, ok = q.TryDequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_EnqueueSignalsWaiter(t *testing.T) {
	q := newEventQueue()

	q.Enqueue(GestureEvent{Kind: GestureWheel})
	select {
	case <-q.Wait():
	default:
		t.Fatal("enqueue must signal the wait channel")
	}
}

func TestEventQueue_SignalCoalesces(t *testing.T) {
	q := newEventQueue()

	// A burst posts at most one wakeup; the drain loop empties the queue
	// regardless.
	for i := 0; i < 5; i++ {
		q.Enqueue(GestureEvent{Kind: GestureWheel, WheelTicks: 1})
	}

	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("signal buffer must coalesce to a single wakeup")
	default:
	}
	assert.Equal(t, 5, q.Len())
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(GestureEvent{Kind: GestureDragStart})
	assert.False(t, q.IsClosed())

	q.Close()
	assert.True(t, q.IsClosed())

	assert.False(t, q.Enqueue(GestureEvent{Kind: GestureDragEnd}), "closed queue rejects new events")

	// Already-queued events stay drainable and the wait channel is done.
	_, ok := q.TryDequeue()
	assert.True(t, ok)
	<-q.Wait() // buffered signal from the pre-close enqueue
	_, open := <-q.Wait()
	assert.False(t, open)

	q.Close()
}
