package engine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/blocktrigger/internal/ir"
)

// Engine is the trigger engine: a rule store, a single-flight event queue,
// per-rule timers, listeners and a custom handler table.
//
// Thread-safety model:
//   - every exported method is safe from any goroutine
//   - Emit drains in the caller's goroutine unless a drain is already
//     running, in which case it only enqueues
//   - e.mu is never held across StateContext, listener or handler calls
type Engine struct {
	mu sync.Mutex

	sc        StateContext
	rules     *ruleStore
	queue     *eventQueue
	draining  bool
	stopped   bool
	timers    map[string]timerEntry // rule id -> pending timer
	tokens    map[string]string     // timer token -> rule id
	listeners map[string][]listenerEntry
	nextSub   uint64
	handlers  map[string]HandlerFunc

	clock     *Clock
	ids       IDGenerator
	scheduler Scheduler
	logger    *slog.Logger

	haltOnActionError bool
	maxCascade        int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithStateContext installs the host StateContext at construction.
func WithStateContext(sc StateContext) EngineOption {
	return func(e *Engine) {
		e.sc = sc
	}
}

// WithScheduler replaces the wall-clock timer source.
// Tests pass a manual scheduler to control timer firing.
func WithScheduler(s Scheduler) EngineOption {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithIDGenerator replaces the UUIDv7 rule id generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the logical clock, e.g. to resume numbering.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithHaltOnActionError makes an action failure skip the remaining rules
// of the current event. Queued events still drain.
//
// Default: log the failure and continue with the next matching rule.
func WithHaltOnActionError() EngineOption {
	return func(e *Engine) {
		e.haltOnActionError = true
	}
}

// New creates an Engine. Without options it has no StateContext, uses
// wall-clock timers, UUIDv7 ids and slog.Default().
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		rules:     newRuleStore(),
		queue:     newEventQueue(),
		timers:    make(map[string]timerEntry),
		tokens:    make(map[string]string),
		listeners: make(map[string][]listenerEntry),
		handlers:  make(map[string]HandlerFunc),
		clock:     NewClock(),
		ids:       UUIDv7Generator{},
		scheduler: realScheduler{},
		logger:    slog.Default(),

		maxCascade: DefaultMaxCascade,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// SetContext installs or replaces the StateContext. A nil context turns
// action dispatch back into a logged no-op.
func (e *Engine) SetContext(sc StateContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sc = sc
}

func (e *Engine) stateContext() StateContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sc
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the number of events waiting to be processed.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Emit queues an event raised by objectID and drains the queue unless a
// drain is already running.
//
// When this call owns the drain it returns after the queue is empty,
// including every follow-on event emitted by actions. When another drain
// is running (an action calling Emit, a timer firing mid-drain) it returns
// as soon as the event is queued.
//
// If ctx is cancelled the owning drain stops after the current tick and
// returns ctx.Err(); unprocessed events stay queued for the next Emit.
// A drain that exceeds the cascade limit drops the rest of the queue and
// returns a *CascadeLimitError. Returns ErrEngineStopped after Stop.
func (e *Engine) Emit(ctx context.Context, objectID string, event ir.Event) error {
	if event == nil {
		return fmt.Errorf("emit %s: event is nil", objectID)
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrEngineStopped
	}
	item := queuedEvent{Seq: e.clock.Next(), ObjectID: objectID, Event: event}
	if !e.queue.Enqueue(item) {
		e.mu.Unlock()
		return ErrEngineStopped
	}
	if e.draining {
		e.mu.Unlock()
		e.logger.Debug("event queued behind running drain",
			"object_id", objectID,
			"event", event,
			"seq", item.Seq,
		)
		return nil
	}
	e.draining = true
	e.mu.Unlock()

	return e.drain(ctx)
}

// drain processes queued events until the queue is empty.
// The caller must have set e.draining.
func (e *Engine) drain(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			e.mu.Lock()
			e.draining = false
			e.mu.Unlock()
			panic(r)
		}
	}()

	quota := newCascadeQuota(e.maxCascade)
	for {
		if err := ctx.Err(); err != nil {
			e.mu.Lock()
			e.draining = false
			e.mu.Unlock()
			e.logger.Warn("drain interrupted", "pending", e.queue.Len(), "error", err)
			return err
		}

		// Dequeue and flag reset happen under e.mu so an Emit racing with
		// the last dequeue either lands in this drain or starts its own.
		e.mu.Lock()
		item, ok := e.queue.TryDequeue()
		if !ok || e.stopped {
			e.draining = false
			e.mu.Unlock()
			return nil
		}
		if limitErr := quota.Check(); limitErr != nil {
			limitErr.Dropped = 1 + e.queue.Clear()
			e.draining = false
			e.mu.Unlock()
			e.logger.Error("cascade limit exceeded, dropping queued events",
				"object_id", item.ObjectID,
				"event", item.Event,
				"seq", item.Seq,
				"limit", limitErr.Limit,
				"dropped", limitErr.Dropped,
			)
			return limitErr
		}
		e.mu.Unlock()

		e.processEvent(ctx, item)
	}
}

// processEvent runs one tick: match, notify, sort, evaluate, dispatch.
func (e *Engine) processEvent(ctx context.Context, item queuedEvent) {
	e.mu.Lock()
	matches := e.matchLocked(item)
	var subscribers []listenerEntry
	if len(matches) > 0 {
		subscribers = slices.Clone(e.listeners[item.ObjectID])
	}
	sc := e.sc
	halt := e.haltOnActionError
	e.mu.Unlock()

	if len(matches) == 0 {
		e.logger.Debug("no rules matched",
			"object_id", item.ObjectID,
			"event", item.Event,
			"seq", item.Seq,
		)
		return
	}

	e.notifyListeners(subscribers, item)

	slices.SortStableFunc(matches, func(a, b ir.TriggerRule) int {
		return cmp.Compare(b.EffectivePriority(), a.EffectivePriority())
	})

	for _, rule := range matches {
		if !evaluateConditions(sc, rule.Conditions) {
			e.logger.Debug("rule conditions not met",
				"rule_id", rule.ID,
				"object_id", item.ObjectID,
				"seq", item.Seq,
			)
			continue
		}

		e.logger.Debug("rule fired",
			"rule_id", rule.ID,
			"object_id", item.ObjectID,
			"event", item.Event,
			"action", rule.TargetAction.ActionType(),
			"target_object_id", rule.TargetObjectID,
			"seq", item.Seq,
		)

		if err := e.execute(ctx, sc, rule.TargetObjectID, rule.TargetAction); err != nil {
			e.logger.Error("rule action failed",
				"error", err,
				"rule_id", rule.ID,
				"object_id", item.ObjectID,
				"event", item.Event,
				"action", rule.TargetAction.ActionType(),
				"target_object_id", rule.TargetObjectID,
				"seq", item.Seq,
			)
			if halt {
				e.logger.Warn("skipping remaining rules for event",
					"object_id", item.ObjectID,
					"seq", item.Seq,
				)
				return
			}
		}
	}
}

// Stop shuts the engine down: pending timers are cancelled, queued events
// are dropped and later Emit calls return ErrEngineStopped. A drain in
// progress finishes its current tick and returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	e.stopped = true
	timers := len(e.timers)
	e.cancelAllTimersLocked()
	dropped := e.queue.Close()

	e.logger.Info("engine stopped",
		"cancelled_timers", timers,
		"dropped_events", dropped,
	)
}
