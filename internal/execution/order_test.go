package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder_SubmitThenPartialThenFilled(t *testing.T) {
	o := NewOrder("AAPL", SideBuy, 100)
	assert.Equal(t, StatePending, o.State())

	o.submit()
	assert.Equal(t, StateSubmitted, o.State())

	assert.True(t, o.recordFill(40))
	assert.Equal(t, StatePartial, o.State())
	assert.Equal(t, 40.0, o.FilledQty())

	assert.True(t, o.recordFill(60))
	assert.Equal(t, StateFilled, o.State())
	assert.False(t, o.IsActive())
}

func TestOrder_RecordFillRejectedWhenNotActive(t *testing.T) {
	o := NewOrder("AAPL", SideBuy, 100)
	assert.True(t, o.Cancel())
	assert.False(t, o.recordFill(10), "a terminal order must not accept further fills")
}

func TestOrder_CancelOnlySucceedsWhileActive(t *testing.T) {
	o := NewOrder("AAPL", SideSell, 10)
	assert.True(t, o.Cancel())
	assert.Equal(t, StateCancelled, o.State())
	assert.False(t, o.Cancel(), "cancelling twice must not report success twice")
}

func TestOrder_RejectOnlyAffectsActiveOrders(t *testing.T) {
	o := NewOrder("AAPL", SideBuy, 10)
	o.reject()
	assert.Equal(t, StateRejected, o.State())

	filled := NewOrder("AAPL", SideBuy, 10)
	filled.submit()
	filled.recordFill(10)
	filled.reject()
	assert.Equal(t, StateFilled, filled.State(), "reject must not override a terminal FILLED state")
}

func TestSideFromString(t *testing.T) {
	s, err := SideFromString("buy")
	assert.NoError(t, err)
	assert.Equal(t, SideBuy, s)

	_, err = SideFromString("HOLD")
	assert.Error(t, err)
}
