package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/blocktrigger/internal/ir"
)

// Scheduler runs f once after d. The returned stop function cancels the
// call and reports whether it was still pending.
//
// The default scheduler wraps time.AfterFunc; tests inject a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type timerEntry struct {
	token    string
	objectID string
	stop     func() bool
}

// ScheduleTimerTrigger arranges for a timer event to be emitted on
// objectID after delay, on behalf of ruleID. Any timer already pending for
// the rule is cancelled first.
//
// The emitted event is ir.Timer{Delay: delay in ms, Token: ...}; its token
// routes it to ruleID only. Returns a RULE_NOT_FOUND error for an unknown
// rule and ErrEngineStopped after Stop.
func (e *Engine) ScheduleTimerTrigger(ruleID, objectID string, delay time.Duration) error {
	if delay < 0 {
		return fmt.Errorf("schedule timer for rule %s: negative delay %s", ruleID, delay)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrEngineStopped
	}
	if _, ok := e.rules.get(ruleID); !ok {
		return NewRuleNotFoundError(ruleID)
	}

	e.cancelTimerLocked(ruleID)

	token := fmt.Sprintf("%s#%d", ruleID, e.clock.Next())
	delayMs := delay.Milliseconds()
	stop := e.scheduler.AfterFunc(delay, func() {
		e.fireTimer(ruleID, objectID, token, delayMs)
	})
	e.timers[ruleID] = timerEntry{token: token, objectID: objectID, stop: stop}
	e.tokens[token] = ruleID

	e.logger.Debug("timer scheduled",
		"rule_id", ruleID,
		"object_id", objectID,
		"delay_ms", delayMs,
		"token", token,
	)
	return nil
}

// fireTimer runs on the scheduler's goroutine. It clears the rule's
// registration and emits the timer event, unless the timer was cancelled
// or replaced after the scheduler committed to calling it.
func (e *Engine) fireTimer(ruleID, objectID, token string, delayMs int64) {
	e.mu.Lock()
	entry, ok := e.timers[ruleID]
	if !ok || entry.token != token {
		e.mu.Unlock()
		return
	}
	delete(e.timers, ruleID)
	e.mu.Unlock()

	err := e.Emit(context.Background(), objectID, ir.Timer{Delay: delayMs, Token: token})
	if err != nil {
		e.logger.Error("timer emit failed",
			"error", err,
			"rule_id", ruleID,
			"object_id", objectID,
			"token", token,
		)
	}
}

// CancelTimerTrigger cancels the pending timer for ruleID.
// Cancelling a fired or nonexistent timer is a no-op returning false.
func (e *Engine) CancelTimerTrigger(ruleID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelTimerLocked(ruleID)
}

// PendingTimers returns the number of scheduled timers not yet fired.
func (e *Engine) PendingTimers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// cancelTimerLocked stops the rule's timer and revokes its token, so an
// event already queued by that timer matches nothing.
// Caller must hold e.mu.
func (e *Engine) cancelTimerLocked(ruleID string) bool {
	entry, ok := e.timers[ruleID]
	if !ok {
		return false
	}
	entry.stop()
	delete(e.timers, ruleID)
	delete(e.tokens, entry.token)
	e.logger.Debug("timer cancelled", "rule_id", ruleID, "token", entry.token)
	return true
}

// revokeTokensLocked forgets every token owned by ruleID, including those
// of timers that already fired but whose event is still queued.
// Caller must hold e.mu.
func (e *Engine) revokeTokensLocked(ruleID string) {
	for token, owner := range e.tokens {
		if owner == ruleID {
			delete(e.tokens, token)
		}
	}
}

func (e *Engine) cancelAllTimersLocked() {
	for ruleID := range e.timers {
		e.cancelTimerLocked(ruleID)
	}
}
