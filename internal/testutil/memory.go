package testutil

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/blocktrigger/internal/ir"
)

// Emitter is the slice of the engine a MemoryContext echoes events into.
type Emitter interface {
	Emit(ctx context.Context, objectID string, event ir.Event) error
}

// Call records one mutating StateContext call.
type Call struct {
	Method string
	Target string
	Args   []string
}

// String renders the call as method(target, args...), e.g.
// setObjectState(panel1, open).
func (c Call) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	if c.Target != "" {
		parts = append(parts, c.Target)
	}
	parts = append(parts, c.Args...)
	return c.Method + "(" + strings.Join(parts, ", ") + ")"
}

// VariableObjectID is the object id variable-change echoes are emitted on.
const VariableObjectID = "variables"

// Method names used in Call.Method.
const (
	MethodSetObjectState   = "setObjectState"
	MethodSetVariable      = "setVariable"
	MethodSetObjectVisible = "setObjectVisible"
	MethodPlayMedia        = "playMedia"
	MethodPauseMedia       = "pauseMedia"
	MethodSeekMedia        = "seekMedia"
	MethodFocusObject      = "focusObject"
	MethodBlurObject       = "blurObject"
	MethodScrollToObject   = "scrollToObject"
	MethodEmitTelemetry    = "emitTelemetry"
	MethodSetObjectEnabled = "setObjectEnabled"
	MethodCustom           = "custom"
)

// MemoryContext is an in-memory StateContext (and ObjectEnabler) that
// records every mutating call.
//
// Objects are visible and enabled unless set otherwise. When an Emitter is
// bound, state changes echo state-exit/state-enter events on the object and
// variable changes echo variable-change events on VariableObjectID, the
// way a host application would.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// The mutex is released before echoing events.
type MemoryContext struct {
	mu        sync.Mutex
	states    map[string]string
	variables map[string]ir.Value
	hidden    map[string]bool
	playing   map[string]bool
	disabled  map[string]bool
	playhead  map[string]float64
	focused   string
	calls     []Call
	failures  map[string]error
	emitter   Emitter
}

// NewMemoryContext creates an empty context.
func NewMemoryContext() *MemoryContext {
	return &MemoryContext{
		states:    make(map[string]string),
		variables: make(map[string]ir.Value),
		hidden:    make(map[string]bool),
		playing:   make(map[string]bool),
		disabled:  make(map[string]bool),
		playhead:  make(map[string]float64),
		failures:  make(map[string]error),
	}
}

// BindEmitter enables event echoing into em. Pass nil to disable.
func (m *MemoryContext) BindEmitter(em Emitter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitter = em
}

// PutState seeds an object's state without recording or echoing.
func (m *MemoryContext) PutState(objectID, stateID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[objectID] = stateID
}

// PutVariable seeds a variable without recording or echoing.
func (m *MemoryContext) PutVariable(name string, v ir.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variables[name] = v
}

// PutVisible seeds an object's visibility.
func (m *MemoryContext) PutVisible(objectID string, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hidden[objectID] = !visible
}

// PutPlaying seeds a media object's playback status.
func (m *MemoryContext) PutPlaying(objectID string, playing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing[objectID] = playing
}

// FailOn makes calls to method fail with err. If objectID is non-empty
// only calls targeting that object (or variable name) fail.
func (m *MemoryContext) FailOn(method, objectID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[failureKey(method, objectID)] = err
}

func failureKey(method, target string) string {
	return method + "\x00" + target
}

// Calls returns a copy of the recorded calls in order.
func (m *MemoryContext) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallStrings returns the recorded calls rendered with Call.String.
func (m *MemoryContext) CallStrings() []string {
	calls := m.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// ResetCalls forgets recorded calls; state is kept.
func (m *MemoryContext) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// IsEnabled reports whether an object is enabled.
func (m *MemoryContext) IsEnabled(objectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.disabled[objectID]
}

// Focused returns the id of the focused object, or "".
func (m *MemoryContext) Focused() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focused
}

// Playhead returns the last seek position of a media object.
func (m *MemoryContext) Playhead(objectID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playhead[objectID]
}

// States returns a copy of every object's current state.
func (m *MemoryContext) States() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.states))
	for k, v := range m.states {
		out[k] = v
	}
	return out
}

// Variables returns a copy of every variable's current value.
func (m *MemoryContext) Variables() map[string]ir.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ir.Value, len(m.variables))
	for k, v := range m.variables {
		out[k] = ir.CloneValue(v)
	}
	return out
}

// RecordCall appends a call made outside the StateContext methods, such as
// a custom action handler, and returns any failure injected for it.
func (m *MemoryContext) RecordCall(c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record(c)
}

// record appends the call and returns the injected failure, if any.
// Caller must hold m.mu.
func (m *MemoryContext) record(c Call) error {
	m.calls = append(m.calls, c)
	if err, ok := m.failures[failureKey(c.Method, c.Target)]; ok {
		return err
	}
	if err, ok := m.failures[failureKey(c.Method, "")]; ok {
		return err
	}
	return nil
}

// ObjectState implements engine.StateContext.
func (m *MemoryContext) ObjectState(objectID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[objectID]
	return s, ok
}

// SetObjectState implements engine.StateContext.
func (m *MemoryContext) SetObjectState(ctx context.Context, objectID, stateID string, animate bool) error {
	m.mu.Lock()
	args := []string{stateID}
	if animate {
		args = append(args, "animate")
	}
	if err := m.record(Call{Method: MethodSetObjectState, Target: objectID, Args: args}); err != nil {
		m.mu.Unlock()
		return err
	}
	previous, had := m.states[objectID]
	m.states[objectID] = stateID
	em := m.emitter
	m.mu.Unlock()

	if em == nil || (had && previous == stateID) {
		return nil
	}
	if had && previous != "" {
		if err := em.Emit(ctx, objectID, ir.StateExit{StateID: previous}); err != nil {
			return err
		}
	}
	return em.Emit(ctx, objectID, ir.StateEnter{StateID: stateID})
}

// Variable implements engine.StateContext.
func (m *MemoryContext) Variable(name string) (ir.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variables[name]
	return v, ok
}

// SetVariable implements engine.StateContext.
func (m *MemoryContext) SetVariable(ctx context.Context, name string, value ir.Value) error {
	m.mu.Lock()
	if err := m.record(Call{Method: MethodSetVariable, Target: name, Args: []string{FormatValue(value)}}); err != nil {
		m.mu.Unlock()
		return err
	}
	previous, had := m.variables[name]
	m.variables[name] = value
	em := m.emitter
	m.mu.Unlock()

	if em == nil || (had && ir.Equal(previous, value)) {
		return nil
	}
	return em.Emit(ctx, VariableObjectID, ir.VariableChange{VariableName: name})
}

// IsObjectVisible implements engine.StateContext.
func (m *MemoryContext) IsObjectVisible(objectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.hidden[objectID]
}

// SetObjectVisible implements engine.StateContext.
func (m *MemoryContext) SetObjectVisible(_ context.Context, objectID string, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Method: MethodSetObjectVisible, Target: objectID, Args: []string{strconv.FormatBool(visible)}}); err != nil {
		return err
	}
	m.hidden[objectID] = !visible
	return nil
}

// IsMediaPlaying implements engine.StateContext.
func (m *MemoryContext) IsMediaPlaying(objectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing[objectID]
}

// PlayMedia implements engine.StateContext.
func (m *MemoryContext) PlayMedia(_ context.Context, objectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Method: MethodPlayMedia, Target: objectID}); err != nil {
		return err
	}
	m.playing[objectID] = true
	return nil
}

// PauseMedia implements engine.StateContext.
func (m *MemoryContext) PauseMedia(_ context.Context, objectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Method: MethodPauseMedia, Target: objectID}); err != nil {
		return err
	}
	m.playing[objectID] = false
	return nil
}

// SeekMedia implements engine.StateContext.
func (m *MemoryContext) SeekMedia(_ context.Context, objectID string, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Method: MethodSeekMedia, Target: objectID, Args: []string{strconv.FormatFloat(seconds, 'f', -1, 64)}}); err != nil {
		return err
	}
	m.playhead[objectID] = seconds
	return nil
}

// FocusObject implements engine.StateContext.
func (m *MemoryContext) FocusObject(_ context.Context, objectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Method: MethodFocusObject, Target: objectID}); err != nil {
		return err
	}
	m.focused = objectID
	return nil
}

// BlurObject implements engine.StateContext.
func (m *MemoryContext) BlurObject(_ context.Context, objectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Method: MethodBlurObject, Target: objectID}); err != nil {
		return err
	}
	if m.focused == objectID {
		m.focused = ""
	}
	return nil
}

// ScrollToObject implements engine.StateContext.
func (m *MemoryContext) ScrollToObject(_ context.Context, objectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record(Call{Method: MethodScrollToObject, Target: objectID})
}

// EmitTelemetry implements engine.StateContext.
func (m *MemoryContext) EmitTelemetry(_ context.Context, verb string, payload ir.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := []string{verb}
	if payload != nil {
		args = append(args, FormatValue(payload))
	}
	return m.record(Call{Method: MethodEmitTelemetry, Args: args})
}

// SetObjectEnabled implements engine.ObjectEnabler.
func (m *MemoryContext) SetObjectEnabled(_ context.Context, objectID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Method: MethodSetObjectEnabled, Target: objectID, Args: []string{strconv.FormatBool(enabled)}}); err != nil {
		return err
	}
	m.disabled[objectID] = !enabled
	return nil
}

// FormatValue renders a value as canonical JSON for call logs.
func FormatValue(v ir.Value) string {
	if v == nil {
		return "<nil>"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
