package ir

import (
	"encoding/json"
	"fmt"
)

// ActionType is the tag identifying a trigger action.
type ActionType string

// Action types.
const (
	ActionGoToState         ActionType = "go-to-state"
	ActionToggleVisibility  ActionType = "toggle-visibility"
	ActionShow              ActionType = "show"
	ActionHide              ActionType = "hide"
	ActionPlayMedia         ActionType = "play-media"
	ActionPauseMedia        ActionType = "pause-media"
	ActionSeekMedia         ActionType = "seek-media"
	ActionFocus             ActionType = "focus"
	ActionBlur              ActionType = "blur"
	ActionScrollTo          ActionType = "scroll-to"
	ActionEmitXAPI          ActionType = "emit-xapi"
	ActionSetVariable       ActionType = "set-variable"
	ActionIncrementVariable ActionType = "increment-variable"
	ActionEnable            ActionType = "enable"
	ActionDisable           ActionType = "disable"
	ActionCustom            ActionType = "custom"
)

// Action is a sealed interface for the side effect a rule performs
// against its target object.
type Action interface {
	ActionType() ActionType
	action()
}

// GoToState transitions the target object to StateID.
type GoToState struct {
	StateID string
	Animate bool
}

// ToggleVisibility flips the target object's visibility.
type ToggleVisibility struct{}

// Show makes the target object visible.
type Show struct{}

// Hide makes the target object hidden.
type Hide struct{}

// PlayMedia starts playback of the target media object.
type PlayMedia struct{}

// PauseMedia pauses playback of the target media object.
type PauseMedia struct{}

// SeekMedia moves the target media object's playhead to Time (seconds).
type SeekMedia struct {
	Time float64
}

// Focus moves input focus to the target object.
type Focus struct{}

// Blur removes input focus from the target object.
type Blur struct{}

// ScrollTo scrolls the target object into view.
type ScrollTo struct{}

// EmitXAPI emits a telemetry statement. The target object is not used.
type EmitXAPI struct {
	Verb    string
	Payload Object
}

// SetVariable assigns Value to the shared variable VariableName.
type SetVariable struct {
	VariableName string
	Value        Value
}

// IncrementVariable adds Amount to a numeric shared variable.
// A zero Amount means 1.
type IncrementVariable struct {
	VariableName string
	Amount       float64
}

// Step returns the effective increment.
func (a IncrementVariable) Step() float64 {
	if a.Amount == 0 {
		return 1
	}
	return a.Amount
}

// Enable enables the target object.
type Enable struct{}

// Disable disables the target object.
type Disable struct{}

// Custom dispatches to a handler registered on the engine under Handler.
type Custom struct {
	Handler string
	Data    Value
}

func (GoToState) ActionType() ActionType         { return ActionGoToState }
func (ToggleVisibility) ActionType() ActionType  { return ActionToggleVisibility }
func (Show) ActionType() ActionType              { return ActionShow }
func (Hide) ActionType() ActionType              { return ActionHide }
func (PlayMedia) ActionType() ActionType         { return ActionPlayMedia }
func (PauseMedia) ActionType() ActionType        { return ActionPauseMedia }
func (SeekMedia) ActionType() ActionType         { return ActionSeekMedia }
func (Focus) ActionType() ActionType             { return ActionFocus }
func (Blur) ActionType() ActionType              { return ActionBlur }
func (ScrollTo) ActionType() ActionType          { return ActionScrollTo }
func (EmitXAPI) ActionType() ActionType          { return ActionEmitXAPI }
func (SetVariable) ActionType() ActionType       { return ActionSetVariable }
func (IncrementVariable) ActionType() ActionType { return ActionIncrementVariable }
func (Enable) ActionType() ActionType            { return ActionEnable }
func (Disable) ActionType() ActionType           { return ActionDisable }
func (Custom) ActionType() ActionType            { return ActionCustom }

func (GoToState) action()         {}
func (ToggleVisibility) action()  {}
func (Show) action()              {}
func (Hide) action()              {}
func (PlayMedia) action()         {}
func (PauseMedia) action()        {}
func (SeekMedia) action()         {}
func (Focus) action()             {}
func (Blur) action()              {}
func (ScrollTo) action()          {}
func (EmitXAPI) action()          {}
func (SetVariable) action()       {}
func (IncrementVariable) action() {}
func (Enable) action()            {}
func (Disable) action()           {}
func (Custom) action()            {}

// NeedsTarget reports whether an action type operates on the rule's
// target object. Telemetry, variable and custom actions do not.
func NeedsTarget(t ActionType) bool {
	switch t {
	case ActionEmitXAPI, ActionSetVariable, ActionIncrementVariable, ActionCustom:
		return false
	default:
		return true
	}
}

// actionWire is the JSON shape of every action.
type actionWire struct {
	Type         ActionType      `json:"type"`
	StateID      string          `json:"stateId,omitempty"`
	Animate      bool            `json:"animate,omitempty"`
	Time         *float64        `json:"time,omitempty"`
	Verb         string          `json:"verb,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	VariableName string          `json:"variableName,omitempty"`
	Value        json.RawMessage `json:"value,omitempty"`
	Amount       *float64        `json:"amount,omitempty"`
	Handler      string          `json:"handler,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// MarshalAction encodes an action as {"type": ..., payload...}.
func MarshalAction(a Action) ([]byte, error) {
	w := actionWire{}
	switch act := a.(type) {
	case GoToState:
		w.StateID = act.StateID
		w.Animate = act.Animate
	case SeekMedia:
		t := act.Time
		w.Time = &t
	case EmitXAPI:
		w.Verb = act.Verb
		if act.Payload != nil {
			raw, err := act.Payload.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("encode payload: %w", err)
			}
			w.Payload = raw
		}
	case SetVariable:
		w.VariableName = act.VariableName
		raw, err := MarshalValue(act.Value)
		if err != nil {
			return nil, fmt.Errorf("encode value: %w", err)
		}
		w.Value = raw
	case IncrementVariable:
		w.VariableName = act.VariableName
		if act.Amount != 0 {
			amount := act.Amount
			w.Amount = &amount
		}
	case Custom:
		w.Handler = act.Handler
		raw, err := encodeOptionalValue(act.Data)
		if err != nil {
			return nil, fmt.Errorf("encode data: %w", err)
		}
		w.Data = raw
	case ToggleVisibility, Show, Hide, PlayMedia, PauseMedia, Focus, Blur, ScrollTo, Enable, Disable:
	case nil:
		return nil, fmt.Errorf("action is nil")
	default:
		return nil, fmt.Errorf("unsupported action %T", a)
	}
	w.Type = a.ActionType()
	return json.Marshal(w)
}

// UnmarshalAction decodes an action from its JSON form.
func UnmarshalAction(data []byte) (Action, error) {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}

	switch w.Type {
	case ActionGoToState:
		return GoToState{StateID: w.StateID, Animate: w.Animate}, nil
	case ActionToggleVisibility:
		return ToggleVisibility{}, nil
	case ActionShow:
		return Show{}, nil
	case ActionHide:
		return Hide{}, nil
	case ActionPlayMedia:
		return PlayMedia{}, nil
	case ActionPauseMedia:
		return PauseMedia{}, nil
	case ActionSeekMedia:
		var t float64
		if w.Time != nil {
			t = *w.Time
		}
		return SeekMedia{Time: t}, nil
	case ActionFocus:
		return Focus{}, nil
	case ActionBlur:
		return Blur{}, nil
	case ActionScrollTo:
		return ScrollTo{}, nil
	case ActionEmitXAPI:
		act := EmitXAPI{Verb: w.Verb}
		if len(w.Payload) > 0 && string(w.Payload) != "null" {
			var payload Object
			if err := json.Unmarshal(w.Payload, &payload); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
			act.Payload = payload
		}
		return act, nil
	case ActionSetVariable:
		val, err := decodeOptionalValue(w.Value)
		if err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
		if val == nil {
			val = Null{}
		}
		return SetVariable{VariableName: w.VariableName, Value: val}, nil
	case ActionIncrementVariable:
		act := IncrementVariable{VariableName: w.VariableName}
		if w.Amount != nil {
			act.Amount = *w.Amount
		}
		return act, nil
	case ActionEnable:
		return Enable{}, nil
	case ActionDisable:
		return Disable{}, nil
	case ActionCustom:
		val, err := decodeOptionalValue(w.Data)
		if err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
		return Custom{Handler: w.Handler, Data: val}, nil
	case "":
		return nil, fmt.Errorf("action type is required")
	default:
		return nil, fmt.Errorf("unknown action type %q", w.Type)
	}
}

// ValidateAction checks that an action carries the operands it needs.
func ValidateAction(a Action) error {
	switch act := a.(type) {
	case nil:
		return fmt.Errorf("target action is required")
	case GoToState:
		if act.StateID == "" {
			return fmt.Errorf("%s action requires stateId", ActionGoToState)
		}
	case SeekMedia:
		if act.Time < 0 {
			return fmt.Errorf("%s action requires a non-negative time", ActionSeekMedia)
		}
	case EmitXAPI:
		if act.Verb == "" {
			return fmt.Errorf("%s action requires verb", ActionEmitXAPI)
		}
	case SetVariable:
		if act.VariableName == "" {
			return fmt.Errorf("%s action requires variableName", ActionSetVariable)
		}
	case IncrementVariable:
		if act.VariableName == "" {
			return fmt.Errorf("%s action requires variableName", ActionIncrementVariable)
		}
	case Custom:
		if act.Handler == "" {
			return fmt.Errorf("%s action requires handler", ActionCustom)
		}
	}
	return nil
}

// cloneAction deep-copies the mutable parts of an action.
func cloneAction(a Action) Action {
	switch act := a.(type) {
	case EmitXAPI:
		if act.Payload != nil {
			act.Payload = CloneValue(act.Payload).(Object)
		}
		return act
	case SetVariable:
		act.Value = CloneValue(act.Value)
		return act
	case Custom:
		act.Data = CloneValue(act.Data)
		return act
	default:
		return a
	}
}
