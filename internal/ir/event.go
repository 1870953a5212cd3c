package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EventType is the tag identifying a trigger event.
type EventType string

// Event types. Events with a payload have a dedicated struct; the rest
// are carried by Signal.
const (
	EventStateEnter     EventType = "state-enter"
	EventStateExit      EventType = "state-exit"
	EventMediaTime      EventType = "media-time"
	EventTimer          EventType = "timer"
	EventVariableChange EventType = "variable-change"

	EventClick         EventType = "click"
	EventHoverStart    EventType = "hover-start"
	EventHoverEnd      EventType = "hover-end"
	EventMediaPlay     EventType = "media-play"
	EventMediaPause    EventType = "media-pause"
	EventMediaEnd      EventType = "media-end"
	EventQuizCorrect   EventType = "quiz-correct"
	EventQuizIncorrect EventType = "quiz-incorrect"
	EventQuizSubmit    EventType = "quiz-submit"
	EventAnimationEnd  EventType = "animation-end"
	EventScrollInView  EventType = "scroll-in-view"
	EventScrollOutView EventType = "scroll-out-view"
)

// signalTypes lists the payload-free event types carried by Signal.
var signalTypes = map[EventType]bool{
	EventClick:         true,
	EventHoverStart:    true,
	EventHoverEnd:      true,
	EventMediaPlay:     true,
	EventMediaPause:    true,
	EventMediaEnd:      true,
	EventQuizCorrect:   true,
	EventQuizIncorrect: true,
	EventQuizSubmit:    true,
	EventAnimationEnd:  true,
	EventScrollInView:  true,
	EventScrollOutView: true,
}

// IsSignalType reports whether t is a payload-free event type.
func IsSignalType(t EventType) bool {
	return signalTypes[t]
}

// Event is a sealed interface for trigger events.
// Only the event structs in this package implement it.
type Event interface {
	EventType() EventType
	event()
}

// StateEnter fires when an object enters the named state.
type StateEnter struct {
	StateID string
}

// StateExit fires when an object leaves the named state.
type StateExit struct {
	StateID string
}

// MediaTime fires when media playback reaches Time (seconds).
type MediaTime struct {
	Time float64
}

// Timer fires when a scheduled delay elapses.
//
// Delay is in milliseconds and is a correlation key, not a timestamp.
// Token identifies the scheduled timer that produced the event; it is
// empty on rule source events and on timer events emitted by a host.
type Timer struct {
	Delay int64
	Token string
}

// VariableChange fires when the named shared variable changes.
type VariableChange struct {
	VariableName string
}

// Signal is any event whose type alone identifies it (click, hover-start,
// media-end, ...). Kind must satisfy IsSignalType.
type Signal struct {
	Kind EventType
}

func (StateEnter) EventType() EventType     { return EventStateEnter }
func (StateExit) EventType() EventType      { return EventStateExit }
func (MediaTime) EventType() EventType      { return EventMediaTime }
func (Timer) EventType() EventType          { return EventTimer }
func (VariableChange) EventType() EventType { return EventVariableChange }
func (s Signal) EventType() EventType       { return s.Kind }

func (StateEnter) event()     {}
func (StateExit) event()      {}
func (MediaTime) event()      {}
func (Timer) event()          {}
func (VariableChange) event() {}
func (Signal) event()         {}

func (e StateEnter) String() string { return "state-enter(" + e.StateID + ")" }
func (e StateExit) String() string  { return "state-exit(" + e.StateID + ")" }
func (e MediaTime) String() string {
	return "media-time(" + strconv.FormatFloat(e.Time, 'f', -1, 64) + ")"
}
func (e Timer) String() string {
	return "timer(" + strconv.FormatInt(e.Delay, 10) + ")"
}
func (e VariableChange) String() string { return "variable-change(" + e.VariableName + ")" }
func (e Signal) String() string         { return string(e.Kind) }

// Click returns the click event. Convenience for the most common signal.
func Click() Signal { return Signal{Kind: EventClick} }

// eventWire is the JSON shape of every event.
type eventWire struct {
	Type         EventType `json:"type"`
	StateID      string    `json:"stateId,omitempty"`
	Time         *float64  `json:"time,omitempty"`
	Delay        *int64    `json:"delay,omitempty"`
	Token        string    `json:"token,omitempty"`
	VariableName string    `json:"variableName,omitempty"`
}

// MarshalEvent encodes an event as {"type": ..., payload...}.
func MarshalEvent(e Event) ([]byte, error) {
	w, err := toEventWire(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func toEventWire(e Event) (eventWire, error) {
	switch ev := e.(type) {
	case StateEnter:
		return eventWire{Type: EventStateEnter, StateID: ev.StateID}, nil
	case StateExit:
		return eventWire{Type: EventStateExit, StateID: ev.StateID}, nil
	case MediaTime:
		t := ev.Time
		return eventWire{Type: EventMediaTime, Time: &t}, nil
	case Timer:
		d := ev.Delay
		return eventWire{Type: EventTimer, Delay: &d, Token: ev.Token}, nil
	case VariableChange:
		return eventWire{Type: EventVariableChange, VariableName: ev.VariableName}, nil
	case Signal:
		if !IsSignalType(ev.Kind) {
			return eventWire{}, fmt.Errorf("unknown event type %q", ev.Kind)
		}
		return eventWire{Type: ev.Kind}, nil
	case nil:
		return eventWire{}, fmt.Errorf("event is nil")
	default:
		return eventWire{}, fmt.Errorf("unsupported event %T", e)
	}
}

// UnmarshalEvent decodes an event from its JSON form.
// Missing payload fields decode to zero values; ValidateEvent rejects
// the ones a rule cannot use.
func UnmarshalEvent(data []byte) (Event, error) {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return fromEventWire(w)
}

func fromEventWire(w eventWire) (Event, error) {
	switch w.Type {
	case EventStateEnter:
		return StateEnter{StateID: w.StateID}, nil
	case EventStateExit:
		return StateExit{StateID: w.StateID}, nil
	case EventMediaTime:
		var t float64
		if w.Time != nil {
			t = *w.Time
		}
		return MediaTime{Time: t}, nil
	case EventTimer:
		var d int64
		if w.Delay != nil {
			d = *w.Delay
		}
		return Timer{Delay: d, Token: w.Token}, nil
	case EventVariableChange:
		return VariableChange{VariableName: w.VariableName}, nil
	case "":
		return nil, fmt.Errorf("event type is required")
	default:
		if !IsSignalType(w.Type) {
			return nil, fmt.Errorf("unknown event type %q", w.Type)
		}
		return Signal{Kind: w.Type}, nil
	}
}

// ValidateEvent checks that an event can serve as a rule's source event.
func ValidateEvent(e Event) error {
	switch ev := e.(type) {
	case nil:
		return fmt.Errorf("source event is required")
	case StateEnter:
		if ev.StateID == "" {
			return fmt.Errorf("%s event requires stateId", EventStateEnter)
		}
	case StateExit:
		if ev.StateID == "" {
			return fmt.Errorf("%s event requires stateId", EventStateExit)
		}
	case MediaTime:
		if ev.Time < 0 {
			return fmt.Errorf("%s event requires a non-negative time", EventMediaTime)
		}
	case Timer:
		if ev.Delay < 0 {
			return fmt.Errorf("%s event requires a non-negative delay", EventTimer)
		}
	case VariableChange:
		if ev.VariableName == "" {
			return fmt.Errorf("%s event requires variableName", EventVariableChange)
		}
	case Signal:
		if !IsSignalType(ev.Kind) {
			return fmt.Errorf("unknown event type %q", ev.Kind)
		}
	default:
		return fmt.Errorf("unsupported event %T", e)
	}
	return nil
}
