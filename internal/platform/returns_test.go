package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturns_SimplePercentChange(t *testing.T) {
	store := newTestStore(t)
	id, err := store.GetInternalID("AAPL", day(0))
	require.NoError(t, err)

	require.NoError(t, store.AddBars([]Bar{
		{InternalID: id, Timestamp: day(0), Timeframe: Timeframe1Day, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1},
		{InternalID: id, Timestamp: day(1), Timeframe: Timeframe1Day, Open: 110, High: 110, Low: 110, Close: 110, Volume: 1},
		{InternalID: id, Timestamp: day(2), Timeframe: Timeframe1Day, Open: 99, High: 99, Low: 99, Close: 99, Volume: 1},
	}))

	rets, err := store.GetReturns([]uint64{id}, day(0), day(2), nil)
	require.NoError(t, err)
	require.Len(t, rets[id], 2)
	assert.InDelta(t, 0.10, rets[id][0], 1e-9)
	assert.InDelta(t, -0.10, rets[id][1], 1e-9)
}

func TestGetReturns_BenchmarkRelative(t *testing.T) {
	store := newTestStore(t)
	id, err := store.GetInternalID("AAPL", day(0))
	require.NoError(t, err)
	bench, err := store.GetInternalID("SPY", day(0))
	require.NoError(t, err)

	require.NoError(t, store.AddBars([]Bar{
		{InternalID: id, Timestamp: day(0), Timeframe: Timeframe1Day, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1},
		{InternalID: id, Timestamp: day(1), Timeframe: Timeframe1Day, Open: 110, High: 110, Low: 110, Close: 110, Volume: 1},
		{InternalID: bench, Timestamp: day(0), Timeframe: Timeframe1Day, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1},
		{InternalID: bench, Timestamp: day(1), Timeframe: Timeframe1Day, Open: 100, High: 100, Low: 100, Close: 105, Volume: 1},
	}))

	rets, err := store.GetReturns([]uint64{id}, day(0), day(1), &bench)
	require.NoError(t, err)
	require.Len(t, rets[id], 1)
	assert.InDelta(t, 0.05, rets[id][0], 1e-9)
}
