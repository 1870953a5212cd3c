package engine

import (
	"sync"

	"github.com/roach88/blocktrigger/internal/ir"
)

// queuedEvent is one pending (objectID, event) pair.
type queuedEvent struct {
	Seq      int64
	ObjectID string
	Event    ir.Event
}

// eventQueue is a thread-safe FIFO queue of pending events.
//
// The queue is unbounded so that cascading rule firings can enqueue
// arbitrarily many follow-on events without blocking the drainer.
type eventQueue struct {
	mu     sync.Mutex
	events []queuedEvent
	closed bool
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]queuedEvent, 0, 16),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e queuedEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)
	return true
}

// TryDequeue removes and returns the front event without blocking.
// Returns (queuedEvent{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (queuedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return queuedEvent{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array does not pin the event.
	q.events[0] = queuedEvent{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Clear drops every pending event and returns how many were dropped.
func (q *eventQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.events)
	clear(q.events)
	q.events = q.events[:0]
	return n
}

// Close rejects further enqueues and drops anything still pending.
// Returns the number of dropped events.
func (q *eventQueue) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true
	dropped := len(q.events)
	q.events = nil
	return dropped
}
