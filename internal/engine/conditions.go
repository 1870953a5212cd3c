package engine

import (
	"strings"

	"github.com/roach88/blocktrigger/internal/ir"
)

// EvaluateConditions evaluates conds against the current StateContext.
// See evaluateConditions.
func (e *Engine) EvaluateConditions(conds []ir.Condition) bool {
	return evaluateConditions(e.stateContext(), conds)
}

// evaluateConditions is the AND over every condition's (result XOR negate).
// An empty list is true.
func evaluateConditions(sc StateContext, conds []ir.Condition) bool {
	for _, c := range conds {
		if evaluateCondition(sc, c) == c.Negate {
			return false
		}
	}
	return true
}

// evaluateCondition returns the raw result of c, before negate.
//
// Conditions fail closed: a missing operand, a missing StateContext or an
// operand of the wrong kind yields false.
func evaluateCondition(sc StateContext, c ir.Condition) bool {
	if sc == nil {
		return false
	}

	switch c.Type {
	case ir.ConditionStateIs:
		if c.ObjectID == "" || c.StateID == "" {
			return false
		}
		state, ok := sc.ObjectState(c.ObjectID)
		return ok && state == c.StateID

	case ir.ConditionStateNot:
		if c.ObjectID == "" || c.StateID == "" {
			return false
		}
		state, ok := sc.ObjectState(c.ObjectID)
		return !ok || state != c.StateID

	case ir.ConditionVariableEquals:
		if c.VariableName == "" || c.Value == nil {
			return false
		}
		v, ok := sc.Variable(c.VariableName)
		return ok && ir.Equal(v, c.Value)

	case ir.ConditionVariableNotEquals:
		if c.VariableName == "" || c.Value == nil {
			return false
		}
		v, ok := sc.Variable(c.VariableName)
		return !ok || !ir.Equal(v, c.Value)

	case ir.ConditionVariableGT, ir.ConditionVariableLT, ir.ConditionVariableGTE, ir.ConditionVariableLTE:
		return compareNumeric(sc, c)

	case ir.ConditionVariableContains:
		if c.VariableName == "" {
			return false
		}
		v, ok := sc.Variable(c.VariableName)
		if !ok {
			return false
		}
		haystack, ok := ir.AsString(v)
		if !ok {
			return false
		}
		needle, ok := ir.AsString(c.Value)
		return ok && strings.Contains(haystack, needle)

	case ir.ConditionObjectVisible:
		return c.ObjectID != "" && sc.IsObjectVisible(c.ObjectID)

	case ir.ConditionObjectHidden:
		return c.ObjectID != "" && !sc.IsObjectVisible(c.ObjectID)

	case ir.ConditionMediaPlaying:
		return c.ObjectID != "" && sc.IsMediaPlaying(c.ObjectID)

	case ir.ConditionMediaPaused:
		return c.ObjectID != "" && !sc.IsMediaPlaying(c.ObjectID)

	default:
		return false
	}
}

// compareNumeric handles the ordering conditions. Both the variable and
// the operand must be numbers.
func compareNumeric(sc StateContext, c ir.Condition) bool {
	if c.VariableName == "" {
		return false
	}
	v, ok := sc.Variable(c.VariableName)
	if !ok {
		return false
	}
	left, ok := ir.AsNumber(v)
	if !ok {
		return false
	}
	right, ok := ir.AsNumber(c.Value)
	if !ok {
		return false
	}

	switch c.Type {
	case ir.ConditionVariableGT:
		return left > right
	case ir.ConditionVariableLT:
		return left < right
	case ir.ConditionVariableGTE:
		return left >= right
	case ir.ConditionVariableLTE:
		return left <= right
	}
	return false
}
