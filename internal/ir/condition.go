package ir

import (
	"encoding/json"
	"fmt"
)

// ConditionType is the tag identifying a guard condition.
type ConditionType string

// Condition types.
const (
	ConditionStateIs           ConditionType = "state-is"
	ConditionStateNot          ConditionType = "state-not"
	ConditionVariableEquals    ConditionType = "variable-equals"
	ConditionVariableNotEquals ConditionType = "variable-not-equals"
	ConditionVariableGT        ConditionType = "variable-gt"
	ConditionVariableLT        ConditionType = "variable-lt"
	ConditionVariableGTE       ConditionType = "variable-gte"
	ConditionVariableLTE       ConditionType = "variable-lte"
	ConditionVariableContains  ConditionType = "variable-contains"
	ConditionObjectVisible     ConditionType = "object-visible"
	ConditionObjectHidden      ConditionType = "object-hidden"
	ConditionMediaPlaying      ConditionType = "media-playing"
	ConditionMediaPaused       ConditionType = "media-paused"
)

var conditionTypes = map[ConditionType]bool{
	ConditionStateIs:           true,
	ConditionStateNot:          true,
	ConditionVariableEquals:    true,
	ConditionVariableNotEquals: true,
	ConditionVariableGT:        true,
	ConditionVariableLT:        true,
	ConditionVariableGTE:       true,
	ConditionVariableLTE:       true,
	ConditionVariableContains:  true,
	ConditionObjectVisible:     true,
	ConditionObjectHidden:      true,
	ConditionMediaPlaying:      true,
	ConditionMediaPaused:       true,
}

// IsConditionType reports whether t is a known condition type.
func IsConditionType(t ConditionType) bool {
	return conditionTypes[t]
}

// Condition is a guard predicate over shared state.
//
// Operands are optional on the wire. A condition whose type needs an
// operand that is absent evaluates to false; Value is nil when absent and
// Null when the document holds an explicit null.
type Condition struct {
	Type         ConditionType
	ObjectID     string
	StateID      string
	VariableName string
	Value        Value
	Negate       bool
}

type conditionWire struct {
	Type         ConditionType   `json:"type"`
	ObjectID     string          `json:"objectId,omitempty"`
	StateID      string          `json:"stateId,omitempty"`
	VariableName string          `json:"variableName,omitempty"`
	Value        json.RawMessage `json:"value,omitempty"`
	Negate       bool            `json:"negate,omitempty"`
}

// MarshalJSON implements json.Marshaler for Condition.
func (c Condition) MarshalJSON() ([]byte, error) {
	raw, err := encodeOptionalValue(c.Value)
	if err != nil {
		return nil, fmt.Errorf("encode condition value: %w", err)
	}
	return json.Marshal(conditionWire{
		Type:         c.Type,
		ObjectID:     c.ObjectID,
		StateID:      c.StateID,
		VariableName: c.VariableName,
		Value:        raw,
		Negate:       c.Negate,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Condition.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var w conditionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	val, err := decodeOptionalValue(w.Value)
	if err != nil {
		return fmt.Errorf("decode condition value: %w", err)
	}
	*c = Condition{
		Type:         w.Type,
		ObjectID:     w.ObjectID,
		StateID:      w.StateID,
		VariableName: w.VariableName,
		Value:        val,
		Negate:       w.Negate,
	}
	return nil
}

// ValidateCondition rejects unknown condition types. Missing operands are
// not an error: they make the condition evaluate false.
func ValidateCondition(c Condition) error {
	if c.Type == "" {
		return fmt.Errorf("condition type is required")
	}
	if !IsConditionType(c.Type) {
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	return nil
}
