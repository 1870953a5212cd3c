package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/blocktrigger/internal/ir"
	"github.com/roach88/blocktrigger/internal/testutil"
)

func conditionContext() *testutil.MemoryContext {
	sc := testutil.NewMemoryContext()
	sc.PutState("panel1", "open")
	sc.PutVariable("score", ir.Number(10))
	sc.PutVariable("name", ir.String("Ada Lovelace"))
	sc.PutVariable("count", ir.String("10"))
	sc.PutVariable("flag", ir.Bool(true))
	sc.PutVariable("nothing", ir.Null{})
	sc.PutVisible("hidden1", false)
	sc.PutPlaying("video1", true)
	return sc
}

func TestEvaluateCondition(t *testing.T) {
	sc := conditionContext()

	tests := []struct {
		name string
		cond ir.Condition
		want bool
	}{
		{"state-is match", ir.Condition{Type: ir.ConditionStateIs, ObjectID: "panel1", StateID: "open"}, true},
		{"state-is mismatch", ir.Condition{Type: ir.ConditionStateIs, ObjectID: "panel1", StateID: "closed"}, false},
		{"state-is unknown object", ir.Condition{Type: ir.ConditionStateIs, ObjectID: "ghost", StateID: "open"}, false},
		{"state-is missing object", ir.Condition{Type: ir.ConditionStateIs, StateID: "open"}, false},
		{"state-not mismatch", ir.Condition{Type: ir.ConditionStateNot, ObjectID: "panel1", StateID: "closed"}, true},
		{"state-not match", ir.Condition{Type: ir.ConditionStateNot, ObjectID: "panel1", StateID: "open"}, false},
		{"state-not missing state", ir.Condition{Type: ir.ConditionStateNot, ObjectID: "panel1"}, false},

		{"equals exact", ir.Condition{Type: ir.ConditionVariableEquals, VariableName: "score", Value: ir.Number(10)}, true},
		{"equals is strict", ir.Condition{Type: ir.ConditionVariableEquals, VariableName: "count", Value: ir.Number(10)}, false},
		{"equals null", ir.Condition{Type: ir.ConditionVariableEquals, VariableName: "nothing", Value: ir.Null{}}, true},
		{"equals absent value", ir.Condition{Type: ir.ConditionVariableEquals, VariableName: "nothing"}, false},
		{"equals unset variable", ir.Condition{Type: ir.ConditionVariableEquals, VariableName: "ghost", Value: ir.Null{}}, false},
		{"not-equals differs", ir.Condition{Type: ir.ConditionVariableNotEquals, VariableName: "score", Value: ir.Number(11)}, true},
		{"not-equals same", ir.Condition{Type: ir.ConditionVariableNotEquals, VariableName: "score", Value: ir.Number(10)}, false},
		{"not-equals missing name", ir.Condition{Type: ir.ConditionVariableNotEquals, Value: ir.Number(10)}, false},

		{"gt true", ir.Condition{Type: ir.ConditionVariableGT, VariableName: "score", Value: ir.Number(9)}, true},
		{"gt equal", ir.Condition{Type: ir.ConditionVariableGT, VariableName: "score", Value: ir.Number(10)}, false},
		{"gt non-numeric variable", ir.Condition{Type: ir.ConditionVariableGT, VariableName: "count", Value: ir.Number(1)}, false},
		{"gt non-numeric operand", ir.Condition{Type: ir.ConditionVariableGT, VariableName: "score", Value: ir.String("1")}, false},
		{"lt true", ir.Condition{Type: ir.ConditionVariableLT, VariableName: "score", Value: ir.Number(11)}, true},
		{"gte equal", ir.Condition{Type: ir.ConditionVariableGTE, VariableName: "score", Value: ir.Number(10)}, true},
		{"lte equal", ir.Condition{Type: ir.ConditionVariableLTE, VariableName: "score", Value: ir.Number(10)}, true},
		{"lte false", ir.Condition{Type: ir.ConditionVariableLTE, VariableName: "score", Value: ir.Number(9.5)}, false},

		{"contains", ir.Condition{Type: ir.ConditionVariableContains, VariableName: "name", Value: ir.String("Love")}, true},
		{"contains missing", ir.Condition{Type: ir.ConditionVariableContains, VariableName: "name", Value: ir.String("Babbage")}, false},
		{"contains non-string variable", ir.Condition{Type: ir.ConditionVariableContains, VariableName: "score", Value: ir.String("1")}, false},
		{"contains non-string operand", ir.Condition{Type: ir.ConditionVariableContains, VariableName: "count", Value: ir.Number(1)}, false},

		{"visible default", ir.Condition{Type: ir.ConditionObjectVisible, ObjectID: "panel1"}, true},
		{"visible hidden object", ir.Condition{Type: ir.ConditionObjectVisible, ObjectID: "hidden1"}, false},
		{"hidden", ir.Condition{Type: ir.ConditionObjectHidden, ObjectID: "hidden1"}, true},
		{"hidden missing object", ir.Condition{Type: ir.ConditionObjectHidden}, false},
		{"playing", ir.Condition{Type: ir.ConditionMediaPlaying, ObjectID: "video1"}, true},
		{"paused", ir.Condition{Type: ir.ConditionMediaPaused, ObjectID: "video1"}, false},
		{"paused idle media", ir.Condition{Type: ir.ConditionMediaPaused, ObjectID: "video2"}, true},
		{"unknown type", ir.Condition{Type: "bogus"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluateCondition(sc, tt.cond))
		})
	}
}

func TestEvaluateConditions_NegateAndConjunction(t *testing.T) {
	sc := conditionContext()
	gt := ir.Condition{Type: ir.ConditionVariableGT, VariableName: "score", Value: ir.Number(5)}
	notGT := gt
	notGT.Negate = true
	missing := ir.Condition{Type: ir.ConditionVariableGT, Value: ir.Number(5)}
	negatedMissing := missing
	negatedMissing.Negate = true

	assert.True(t, evaluateConditions(sc, nil), "empty list is true")
	assert.True(t, evaluateConditions(sc, []ir.Condition{gt}))
	assert.False(t, evaluateConditions(sc, []ir.Condition{notGT}))
	assert.False(t, evaluateConditions(sc, []ir.Condition{gt, notGT}))
	assert.False(t, evaluateConditions(sc, []ir.Condition{missing}))
	assert.True(t, evaluateConditions(sc, []ir.Condition{negatedMissing}), "negate applies after fail-closed")
}

func TestEvaluateConditions_NoContext(t *testing.T) {
	cond := ir.Condition{Type: ir.ConditionObjectVisible, ObjectID: "panel1"}
	assert.False(t, evaluateConditions(nil, []ir.Condition{cond}))
	assert.True(t, evaluateConditions(nil, nil))
}

func TestEngine_EvaluateConditions(t *testing.T) {
	f := newFixture(t)
	f.sc.PutVariable("score", ir.String("high"))

	assert.False(t, f.engine.EvaluateConditions([]ir.Condition{
		{Type: ir.ConditionVariableGT, VariableName: "score", Value: ir.Number(1)},
	}))
	assert.True(t, f.engine.EvaluateConditions([]ir.Condition{
		{Type: ir.ConditionVariableEquals, VariableName: "score", Value: ir.String("high")},
	}))
}
