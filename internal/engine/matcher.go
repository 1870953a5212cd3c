package engine

import (
	"math"

	"github.com/roach88/blocktrigger/internal/ir"
)

// MediaTimeTolerance is the playhead distance, in seconds, within which a
// media-time event matches a rule's declared time. The bound is exclusive.
const MediaTimeTolerance = 0.5

// EventsMatch reports whether an incoming event satisfies a rule's
// declared source event.
//
// The event types must be equal. Per type:
//   - state-enter / state-exit: exact stateId
//   - media-time: |rule - actual| < MediaTimeTolerance
//   - timer: exact delay
//   - variable-change: exact variableName
//   - everything else: the type alone
//
// Timer tokens are not compared here; the engine routes tokened timer
// events to the rule that scheduled them before calling EventsMatch.
func EventsMatch(ruleEvent, actual ir.Event) bool {
	if ruleEvent == nil || actual == nil {
		return false
	}
	if ruleEvent.EventType() != actual.EventType() {
		return false
	}

	switch want := ruleEvent.(type) {
	case ir.StateEnter:
		got, ok := actual.(ir.StateEnter)
		return ok && got.StateID == want.StateID
	case ir.StateExit:
		got, ok := actual.(ir.StateExit)
		return ok && got.StateID == want.StateID
	case ir.MediaTime:
		got, ok := actual.(ir.MediaTime)
		return ok && math.Abs(want.Time-got.Time) < MediaTimeTolerance
	case ir.Timer:
		got, ok := actual.(ir.Timer)
		return ok && got.Delay == want.Delay
	case ir.VariableChange:
		got, ok := actual.(ir.VariableChange)
		return ok && got.VariableName == want.VariableName
	default:
		return true
	}
}

// matchLocked returns clones of the enabled rules triggered by item, in
// rule store order.
//
// A timer event carrying a token is delivered only to the rule that
// scheduled it. The token is consumed here; a token that is no longer
// registered belongs to a cancelled timer and matches nothing.
//
// Caller must hold e.mu.
func (e *Engine) matchLocked(item queuedEvent) []ir.TriggerRule {
	owner := ""
	if t, ok := item.Event.(ir.Timer); ok && t.Token != "" {
		ruleID, live := e.tokens[t.Token]
		if !live {
			e.logger.Debug("dropping stale timer event",
				"object_id", item.ObjectID,
				"token", t.Token,
				"seq", item.Seq,
			)
			return nil
		}
		delete(e.tokens, t.Token)
		owner = ruleID
	}

	var matches []ir.TriggerRule
	e.rules.each(func(r *ir.TriggerRule) {
		if !r.Enabled || r.SourceObjectID != item.ObjectID {
			return
		}
		if owner != "" && r.ID != owner {
			return
		}
		if EventsMatch(r.SourceEvent, item.Event) {
			matches = append(matches, r.Clone())
		}
	})
	return matches
}
