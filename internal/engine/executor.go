package engine

import (
	"context"
	"fmt"

	"github.com/roach88/blocktrigger/internal/ir"
)

// ExecuteAction dispatches action against targetObjectID through the
// current StateContext, outside of any rule.
//
// StateContext errors are returned wrapped, never retried or translated.
// With no StateContext installed the call is a logged no-op.
func (e *Engine) ExecuteAction(ctx context.Context, targetObjectID string, action ir.Action) error {
	return e.execute(ctx, e.stateContext(), targetObjectID, action)
}

// execute maps one action onto StateContext calls.
func (e *Engine) execute(ctx context.Context, sc StateContext, target string, action ir.Action) error {
	if action == nil {
		return fmt.Errorf("execute on %s: action is nil", target)
	}
	if sc == nil {
		e.logger.Warn("no state context set, action skipped",
			"action", action.ActionType(),
			"target_object_id", target,
		)
		return nil
	}

	var err error
	switch a := action.(type) {
	case ir.GoToState:
		err = sc.SetObjectState(ctx, target, a.StateID, a.Animate)
	case ir.ToggleVisibility:
		err = sc.SetObjectVisible(ctx, target, !sc.IsObjectVisible(target))
	case ir.Show:
		err = sc.SetObjectVisible(ctx, target, true)
	case ir.Hide:
		err = sc.SetObjectVisible(ctx, target, false)
	case ir.PlayMedia:
		err = sc.PlayMedia(ctx, target)
	case ir.PauseMedia:
		err = sc.PauseMedia(ctx, target)
	case ir.SeekMedia:
		err = sc.SeekMedia(ctx, target, a.Time)
	case ir.Focus:
		err = sc.FocusObject(ctx, target)
	case ir.Blur:
		err = sc.BlurObject(ctx, target)
	case ir.ScrollTo:
		err = sc.ScrollToObject(ctx, target)
	case ir.EmitXAPI:
		var payload ir.Object
		if a.Payload != nil {
			payload = ir.CloneValue(a.Payload).(ir.Object)
		}
		err = sc.EmitTelemetry(ctx, a.Verb, payload)
	case ir.SetVariable:
		value := a.Value
		if value == nil {
			value = ir.Null{}
		}
		err = sc.SetVariable(ctx, a.VariableName, ir.CloneValue(value))
	case ir.IncrementVariable:
		err = e.increment(ctx, sc, a)
	case ir.Enable:
		err = e.setObjectEnabled(ctx, sc, target, true)
	case ir.Disable:
		err = e.setObjectEnabled(ctx, sc, target, false)
	case ir.Custom:
		err = e.dispatchCustom(ctx, sc, target, a)
	default:
		return fmt.Errorf("execute on %s: unsupported action %T", target, action)
	}

	if err != nil {
		return fmt.Errorf("%s on %q: %w", action.ActionType(), target, err)
	}
	return nil
}

// increment adds the step to a numeric variable. A missing or
// non-numeric variable is left alone.
func (e *Engine) increment(ctx context.Context, sc StateContext, a ir.IncrementVariable) error {
	current, ok := sc.Variable(a.VariableName)
	if !ok {
		e.logger.Debug("increment skipped: variable not set", "variable", a.VariableName)
		return nil
	}
	n, ok := ir.AsNumber(current)
	if !ok {
		e.logger.Debug("increment skipped: variable not numeric", "variable", a.VariableName)
		return nil
	}
	return sc.SetVariable(ctx, a.VariableName, ir.Number(n+a.Step()))
}

func (e *Engine) setObjectEnabled(ctx context.Context, sc StateContext, target string, enabled bool) error {
	enabler, ok := sc.(ObjectEnabler)
	if !ok {
		e.logger.Warn("state context cannot enable or disable objects, action skipped",
			"target_object_id", target,
			"enabled", enabled,
		)
		return nil
	}
	return enabler.SetObjectEnabled(ctx, target, enabled)
}

func (e *Engine) dispatchCustom(ctx context.Context, sc StateContext, target string, a ir.Custom) error {
	e.mu.Lock()
	h, ok := e.handlers[a.Handler]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHandler, a.Handler)
	}
	return callHandler(ctx, a.Handler, h, sc, target, a.Data)
}
