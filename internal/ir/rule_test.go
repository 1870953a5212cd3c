package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func sampleRule() TriggerRule {
	return TriggerRule{
		ID:             "rule-1",
		Name:           "open panel",
		Enabled:        true,
		SourceObjectID: "btn1",
		SourceEvent:    Click(),
		TargetObjectID: "panel1",
		TargetAction:   GoToState{StateID: "open", Animate: true},
		Conditions: []Condition{
			{Type: ConditionVariableGTE, VariableName: "score", Value: Number(10)},
		},
		Priority: intPtr(1),
	}
}

func TestTriggerRule_WireShape(t *testing.T) {
	data, err := json.Marshal(sampleRule())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "rule-1",
		"name": "open panel",
		"enabled": true,
		"sourceObjectId": "btn1",
		"sourceEvent": {"type": "click"},
		"targetObjectId": "panel1",
		"targetAction": {"type": "go-to-state", "stateId": "open", "animate": true},
		"conditions": [{"type": "variable-gte", "variableName": "score", "value": 10}],
		"priority": 1
	}`, string(data))
}

func TestTriggerRule_DecodeNormalizes(t *testing.T) {
	var r TriggerRule
	err := json.Unmarshal([]byte(`{
		"id": "r",
		"sourceObjectId": "video1",
		"sourceEvent": {"type": "media-time", "time": 12.5},
		"targetObjectId": "",
		"targetAction": {"type": "set-variable", "variableName": "seen"}
	}`), &r)
	require.NoError(t, err)

	assert.Equal(t, MediaTime{Time: 12.5}, r.SourceEvent)
	assert.Equal(t, SetVariable{VariableName: "seen", Value: Null{}}, r.TargetAction)
	assert.NotNil(t, r.Conditions)
	assert.Nil(t, r.Priority)
	assert.False(t, r.Enabled)
}

func TestCondition_AbsentVersusNullValue(t *testing.T) {
	var absent, explicit Condition
	require.NoError(t, json.Unmarshal([]byte(`{"type":"variable-equals","variableName":"x"}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"type":"variable-equals","variableName":"x","value":null}`), &explicit))

	assert.Nil(t, absent.Value)
	assert.Equal(t, Null{}, explicit.Value)

	data, err := json.Marshal(absent)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"variable-equals","variableName":"x"}`, string(data))
}

func TestUnmarshalEvent_Errors(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"type":"double-click"}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = UnmarshalEvent([]byte(`{}`))
	assert.ErrorContains(t, err, "required")
}

func TestTimerEvent_TokenOnWire(t *testing.T) {
	data, err := MarshalEvent(Timer{Delay: 1000, Token: "tok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"timer","delay":1000,"token":"tok"}`, string(data))

	ev, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, Timer{Delay: 1000, Token: "tok"}, ev)
}

func TestUnmarshalAction_Custom(t *testing.T) {
	act, err := UnmarshalAction([]byte(`{"type":"custom","handler":"confetti","data":{"count":3}}`))
	require.NoError(t, err)

	custom, ok := act.(Custom)
	require.True(t, ok)
	assert.Equal(t, "confetti", custom.Handler)
	assert.True(t, Equal(Object{"count": Number(3)}, custom.Data))
}

func TestIncrementVariable_Step(t *testing.T) {
	assert.Equal(t, 1.0, IncrementVariable{VariableName: "n"}.Step())
	assert.Equal(t, -2.0, IncrementVariable{VariableName: "n", Amount: -2}.Step())
}

func TestTriggerRule_Validate(t *testing.T) {
	err := TriggerRule{
		SourceEvent:  StateEnter{},
		TargetAction: Show{},
		Conditions:   []Condition{{Type: "bogus"}},
	}.Validate()
	require.Error(t, err)

	assert.ErrorContains(t, err, "sourceObjectId is required")
	assert.ErrorContains(t, err, "requires stateId")
	assert.ErrorContains(t, err, "targetObjectId is required")
	assert.ErrorContains(t, err, `unknown condition type "bogus"`)

	assert.NoError(t, sampleRule().Validate())
}

func TestTriggerRule_ValidateAllowsMissingOperands(t *testing.T) {
	r := sampleRule()
	r.Conditions = []Condition{{Type: ConditionStateIs}}
	assert.NoError(t, r.Validate(), "missing operands fail closed at evaluation, not at validation")
}

func TestTriggerRule_CloneIsDeep(t *testing.T) {
	r := sampleRule()
	r.TargetAction = EmitXAPI{Verb: "experienced", Payload: Object{"k": String("v")}}

	clone := r.Clone()
	*clone.Priority = 99
	clone.Conditions[0].VariableName = "other"
	clone.TargetAction.(EmitXAPI).Payload["k"] = String("changed")

	assert.Equal(t, 1, *r.Priority)
	assert.Equal(t, "score", r.Conditions[0].VariableName)
	assert.Equal(t, String("v"), r.TargetAction.(EmitXAPI).Payload["k"])
}

func TestRuleDocument_Validate(t *testing.T) {
	a := sampleRule()
	b := sampleRule()
	c := sampleRule()
	c.ID = ""

	err := RuleDocument{Rules: []TriggerRule{a, b, c}}.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, `duplicate id "rule-1"`)
	assert.ErrorContains(t, err, "id is required")
}

func TestRuleDocument_EmptyEncodesArray(t *testing.T) {
	data, err := json.Marshal(RuleDocument{})
	require.NoError(t, err)
	assert.Equal(t, `{"rules":[]}`, string(data))

	doc, err := DecodeDocument([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, doc.Rules)
}

func TestDocumentHash_StableAcrossEncodings(t *testing.T) {
	doc := RuleDocument{Rules: []TriggerRule{sampleRule()}}
	h1, err := DocumentHash(doc)
	require.NoError(t, err)

	reordered, err := DecodeDocument([]byte(`{"rules":[{
		"priority": 1,
		"conditions": [{"value": 10, "variableName": "score", "type": "variable-gte"}],
		"targetAction": {"animate": true, "stateId": "open", "type": "go-to-state"},
		"targetObjectId": "panel1",
		"sourceEvent": {"type": "click"},
		"sourceObjectId": "btn1",
		"enabled": true,
		"name": "open panel",
		"id": "rule-1"
	}]}`))
	require.NoError(t, err)

	h2, err := DocumentHash(reordered)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	changed := sampleRule()
	changed.Enabled = false
	h3, err := DocumentHash(RuleDocument{Rules: []TriggerRule{changed}})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestRuleHash_DomainSeparated(t *testing.T) {
	r := sampleRule()
	rh, err := RuleHash(r)
	require.NoError(t, err)
	dh, err := DocumentHash(RuleDocument{Rules: []TriggerRule{r}})
	require.NoError(t, err)
	assert.NotEqual(t, rh, dh)
}
