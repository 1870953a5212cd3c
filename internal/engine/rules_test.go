package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocktrigger/internal/ir"
)

func TestAddRule_AssignsIDs(t *testing.T) {
	f := newFixture(t)

	r := newRule("btn1", ir.Click(), "panel1", ir.Show{})
	r.ID = "caller-chosen"
	id1 := f.add(t, r)
	id2 := f.add(t, newRule("btn2", ir.Click(), "panel2", ir.Show{}))

	assert.Equal(t, "rule-1", id1)
	assert.Equal(t, "rule-2", id2)

	got, ok := f.engine.Rule(id1)
	require.True(t, ok)
	assert.Equal(t, id1, got.ID)
	assert.Equal(t, []ir.Condition{}, got.Conditions)
}

func TestAddRule_UUIDv7ByDefault(t *testing.T) {
	e := New(WithLogger(quietLogger()))
	id1, err := e.AddRule(newRule("btn1", ir.Click(), "panel1", ir.Show{}))
	require.NoError(t, err)
	id2, err := e.AddRule(newRule("btn1", ir.Click(), "panel1", ir.Show{}))
	require.NoError(t, err)

	assert.Len(t, id1, 36)
	assert.NotEqual(t, id1, id2)
}

func TestAddRule_RejectsInvalidRule(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.AddRule(newRule("", ir.StateEnter{}, "", ir.GoToState{}))
	require.Error(t, err)
	assert.True(t, IsInvalidRule(err))
	assert.Contains(t, err.Error(), "sourceObjectId is required")
	assert.Empty(t, f.engine.Rules())
}

func TestAddRule_DuplicateGeneratedID(t *testing.T) {
	e := New(WithLogger(quietLogger()), WithIDGenerator(NewFixedGenerator("same", "same")))
	_, err := e.AddRule(newRule("btn1", ir.Click(), "panel1", ir.Show{}))
	require.NoError(t, err)

	_, err = e.AddRule(newRule("btn1", ir.Click(), "panel1", ir.Show{}))
	assert.True(t, IsDuplicateID(err))
	assert.Len(t, e.Rules(), 1)
}

func TestUpdateRule(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, withPriority(newRule("btn1", ir.Click(), "panel1", ir.Show{}), 3))

	name := "renamed"
	target := "panel2"
	require.NoError(t, f.engine.UpdateRule(id, RulePatch{
		Name:           &name,
		TargetObjectID: &target,
		TargetAction:   ir.Hide{},
		Conditions:     []ir.Condition{{Type: ir.ConditionObjectVisible, ObjectID: "panel2"}},
		ClearPriority:  true,
	}))

	got, ok := f.engine.Rule(id)
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "panel2", got.TargetObjectID)
	assert.Equal(t, ir.Hide{}, got.TargetAction)
	assert.Len(t, got.Conditions, 1)
	assert.Nil(t, got.Priority)
	assert.Equal(t, ir.Click(), got.SourceEvent, "unset fields are kept")
}

func TestUpdateRule_Errors(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, newRule("btn1", ir.Click(), "panel1", ir.Show{}))

	err := f.engine.UpdateRule("missing", RulePatch{})
	assert.True(t, IsRuleNotFound(err))
	assert.ErrorIs(t, err, ErrRuleNotFound)

	empty := ""
	err = f.engine.UpdateRule(id, RulePatch{SourceObjectID: &empty})
	assert.True(t, IsInvalidRule(err))

	got, _ := f.engine.Rule(id)
	assert.Equal(t, "btn1", got.SourceObjectID, "failed update leaves the rule untouched")
}

func TestRemoveRule(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, newRule("btn1", ir.Click(), "panel1", ir.Show{}))

	assert.True(t, f.engine.RemoveRule(id))
	assert.False(t, f.engine.RemoveRule(id))

	_, ok := f.engine.Rule(id)
	assert.False(t, ok)

	f.emit(t, "btn1", ir.Click())
	assert.Empty(t, f.sc.Calls())
}

func TestEnableDisable_UnknownRule(t *testing.T) {
	f := newFixture(t)
	assert.True(t, IsRuleNotFound(f.engine.EnableRule("nope")))
	assert.True(t, IsRuleNotFound(f.engine.DisableRule("nope")))
}

func TestRuleQueries(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, newRule("btn1", ir.Click(), "panel1", ir.Show{}))
	b := f.add(t, newRule("panel1", ir.StateEnter{StateID: "open"}, "video1", ir.PlayMedia{}))
	c := f.add(t, newRule("video1", ir.Signal{Kind: ir.EventMediaEnd}, "panel1", ir.Hide{}))

	ids := func(rules []ir.TriggerRule) []string {
		out := make([]string, len(rules))
		for i, r := range rules {
			out[i] = r.ID
		}
		return out
	}

	assert.Equal(t, []string{a, b, c}, ids(f.engine.Rules()))
	assert.Equal(t, []string{a, b, c}, ids(f.engine.RulesForObject("panel1")))
	assert.Equal(t, []string{b}, ids(f.engine.RulesForSource("panel1")))
	assert.Equal(t, []string{a, c}, ids(f.engine.RulesForTarget("panel1")))
	assert.Empty(t, f.engine.RulesForObject("nobody"))
}

func TestRuleGettersReturnCopies(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, withConditions(
		newRule("btn1", ir.Click(), "panel1", ir.Show{}),
		ir.Condition{Type: ir.ConditionStateIs, ObjectID: "panel1", StateID: "closed"},
	))

	got, _ := f.engine.Rule(id)
	got.Enabled = false
	got.Conditions[0].StateID = "tampered"

	all := f.engine.Rules()
	all[0].SourceObjectID = "tampered"

	stored, _ := f.engine.Rule(id)
	assert.True(t, stored.Enabled)
	assert.Equal(t, "closed", stored.Conditions[0].StateID)
	assert.Equal(t, "btn1", stored.SourceObjectID)
}

func TestClearAllRules(t *testing.T) {
	f := newFixture(t)
	f.add(t, newRule("btn1", ir.Click(), "panel1", ir.Show{}))
	f.add(t, newRule("btn2", ir.Click(), "panel2", ir.Show{}))

	f.engine.ClearAllRules()

	assert.Empty(t, f.engine.Rules())
	f.emit(t, "btn1", ir.Click())
	assert.Empty(t, f.sc.Calls())
}
