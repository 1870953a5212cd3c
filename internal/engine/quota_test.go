package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocktrigger/internal/ir"
)

func TestCascadeQuota(t *testing.T) {
	q := newCascadeQuota(2)
	assert.Nil(t, q.Check())
	assert.Nil(t, q.Check())

	err := q.Check()
	require.NotNil(t, err)
	assert.Equal(t, 3, err.Events)
	assert.Equal(t, 2, err.Limit)
}

func TestCascadeQuota_Unlimited(t *testing.T) {
	q := newCascadeQuota(0)
	for i := 0; i < 100; i++ {
		require.Nil(t, q.Check())
	}
}

func TestEngine_CascadeLimitStopsPingPong(t *testing.T) {
	f := newFixture(t, WithMaxCascade(10))
	f.sc.BindEmitter(f.engine)

	// Each state-enter sends the object to the other state.
	f.add(t, newRule("lamp", ir.StateEnter{StateID: "on"}, "lamp", ir.GoToState{StateID: "off"}))
	f.add(t, newRule("lamp", ir.StateEnter{StateID: "off"}, "lamp", ir.GoToState{StateID: "on"}))

	err := f.engine.Emit(context.Background(), "lamp", ir.StateEnter{StateID: "on"})
	require.Error(t, err)
	assert.True(t, IsCascadeLimitError(err))
	assert.Equal(t, 0, f.engine.QueueLen())

	f.sc.BindEmitter(nil)
	f.sc.ResetCalls()
	f.add(t, newRule("btn1", ir.Click(), "panel1", ir.Show{}))
	f.emit(t, "btn1", ir.Click())
	assert.Len(t, f.sc.Calls(), 1, "the engine keeps working after the limit trips")
}
