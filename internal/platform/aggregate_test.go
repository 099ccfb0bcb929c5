package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBarsAggregating_MaterializesOnCompleteWindow(t *testing.T) {
	store := newTestStore(t, WithTargetTimeframes(Timeframe30Min))
	id, err := store.GetInternalID("AAPL", day(0))
	require.NoError(t, err)

	t0 := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	var bars []Bar
	for i := 0; i < 30; i++ {
		close := 100.0 + float64(i)
		bars = append(bars, Bar{
			InternalID: id,
			Timestamp:  t0.Add(time.Duration(i) * time.Minute),
			Timeframe:  Timeframe1Min,
			Open:       close,
			High:       close,
			Low:        close,
			Close:      close,
			Volume:     100,
		})
	}
	require.NoError(t, store.AddBarsAggregating(bars))

	frame, err := store.GetBars([]uint64{id}, BarQuery{
		Start:     t0,
		End:       t0.Add(29 * time.Minute),
		Timeframe: Timeframe30Min,
	})
	require.NoError(t, err)
	require.Len(t, frame, 1)
	assert.InDelta(t, 3000.0, frame[0].Columns["volume_30min"], 1e-9)
}

func TestAddBarsAggregating_IncompleteWindowMaterializesNothing(t *testing.T) {
	store := newTestStore(t, WithTargetTimeframes(Timeframe30Min))
	id, err := store.GetInternalID("AAPL", day(0))
	require.NoError(t, err)

	t0 := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.AddBarsAggregating([]Bar{
		{InternalID: id, Timestamp: t0, Timeframe: Timeframe1Min, Open: 100, High: 100, Low: 100, Close: 100, Volume: 10},
	}))

	frame, err := store.GetBars([]uint64{id}, BarQuery{
		Start:     t0,
		End:       t0.Add(29 * time.Minute),
		Timeframe: Timeframe30Min,
	})
	require.NoError(t, err)
	assert.Empty(t, frame)
}
