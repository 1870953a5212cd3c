package engine

import (
	"context"

	"github.com/roach88/blocktrigger/internal/ir"
)

// StateContext is the host capability surface the engine reads and
// mutates. The engine never owns it; SetContext or WithStateContext
// installs one.
//
// Methods taking a context may block; the engine waits for them before
// dispatching the next rule. Unknown object ids are the implementation's
// concern: it may no-op or return an error.
type StateContext interface {
	ObjectState(objectID string) (string, bool)
	SetObjectState(ctx context.Context, objectID, stateID string, animate bool) error

	Variable(name string) (ir.Value, bool)
	SetVariable(ctx context.Context, name string, value ir.Value) error

	IsObjectVisible(objectID string) bool
	SetObjectVisible(ctx context.Context, objectID string, visible bool) error

	IsMediaPlaying(objectID string) bool
	PlayMedia(ctx context.Context, objectID string) error
	PauseMedia(ctx context.Context, objectID string) error
	SeekMedia(ctx context.Context, objectID string, seconds float64) error

	FocusObject(ctx context.Context, objectID string) error
	BlurObject(ctx context.Context, objectID string) error
	ScrollToObject(ctx context.Context, objectID string) error

	EmitTelemetry(ctx context.Context, verb string, payload ir.Object) error
}

// ObjectEnabler is an optional StateContext capability backing the enable
// and disable actions. Contexts without it turn those actions into logged
// no-ops.
type ObjectEnabler interface {
	SetObjectEnabled(ctx context.Context, objectID string, enabled bool) error
}
