package engine

import (
	"sync"

	"github.com/vic-nas/bouncer/internal/model"
)

// eventQueue is a thread-safe FIFO queue of platform events.
//
// Unbounded, so a burst from the gateway never blocks the enqueuing
// goroutine. A buffered signal channel of size 1 coalesces wakeups and
// lets the Serve loop wait with context awareness.
type eventQueue struct {
	mu     sync.Mutex
	events []model.Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]model.Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Safe from any goroutine. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(ev model.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, ev)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue attempts to dequeue without blocking.
func (q *eventQueue) TryDequeue() (model.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return model.Event{}, false
	}
	ev := q.events[0]

	// Nil out the slot so the backing array does not retain the event's
	// pointers (snapshot, mentions) under steady load.
	q.events[0] = model.Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return ev, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
