// Package engine implements the blocktrigger cross-object trigger engine.
//
// The engine receives events emitted against content objects, matches them
// against trigger rules, evaluates each rule's guard conditions and
// dispatches the rule's action into a host supplied StateContext.
//
// ARCHITECTURE:
//
// Single-Flight Drain:
// Emit appends the event to one engine-wide FIFO queue. If no drain is
// running, the calling goroutine becomes the drainer and processes items
// until the queue is empty. Events emitted while a drain is running (by
// actions, by timers firing on scheduler goroutines, or by the host) are
// appended to the tail and processed by that same drain. This ensures:
// - Strict FIFO across the whole engine, never per object
// - Breadth-first cascades: an action's follow-on events run after every
//   rule of the current event has finished
// - The StateContext is driven by one caller at a time
//
// Event Processing Flow:
// 1. Emit stamps the event with a logical seq and enqueues it
// 2. The drainer dequeues one item (a tick)
// 3. Enabled rules whose source object and source event match are collected
// 4. Listeners subscribed to the object are notified if anything matched
// 5. Matches are stable-sorted by priority, highest first
// 6. Each rule's conditions are evaluated; passing rules dispatch their
//    action and the drainer waits for it before the next rule
//
// The engine mutex guards rules, timers, listeners, handlers and the drain
// flag. It is never held while calling into the StateContext, a listener or
// a custom handler, so those may call back into the engine freely.
//
// ERROR HANDLING:
// A failing action is logged with rule and event context and the tick
// continues with the next rule. WithHaltOnActionError switches to
// fail-fast per tick. Either way the queue keeps draining.
package engine
