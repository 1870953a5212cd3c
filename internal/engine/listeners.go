package engine

import (
	"slices"
	"sync"

	"github.com/roach88/blocktrigger/internal/ir"
)

// Listener observes events raised by an object.
type Listener func(objectID string, event ir.Event)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Subscribe registers l for events raised by objectID and returns a
// function that removes it. Unsubscribing twice is harmless.
//
// Listeners are notified only for events that match at least one enabled
// rule, before any of those rules run. A panicking listener is logged and
// skipped.
func (e *Engine) Subscribe(objectID string, l Listener) (unsubscribe func()) {
	e.mu.Lock()
	e.nextSub++
	id := e.nextSub
	e.listeners[objectID] = append(e.listeners[objectID], listenerEntry{id: id, fn: l})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			remaining := slices.DeleteFunc(e.listeners[objectID], func(le listenerEntry) bool {
				return le.id == id
			})
			if len(remaining) == 0 {
				delete(e.listeners, objectID)
			} else {
				e.listeners[objectID] = remaining
			}
		})
	}
}

func (e *Engine) notifyListeners(subscribers []listenerEntry, item queuedEvent) {
	for _, sub := range subscribers {
		e.callListener(sub, item)
	}
}

func (e *Engine) callListener(sub listenerEntry, item queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("listener panicked",
				"panic", r,
				"object_id", item.ObjectID,
				"event", item.Event,
				"seq", item.Seq,
			)
		}
	}()
	sub.fn(item.ObjectID, item.Event)
}
