package alpha

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/systrader/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type momentumModel struct{}

func (momentumModel) RequestedFeatures() []string { return []string{"test_feature"} }

func (momentumModel) ComputeSignals(ctx context.Context, latest platform.Frame, returns map[uint64][]float64) map[uint64]float64 {
	out := make(map[uint64]float64, len(latest))
	for _, row := range latest {
		out[row.InternalID] = row.Columns["test_feature"]
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	Register(Feature{
		Name: "test_feature",
		Compute: func(frame platform.Frame) map[RowKey]float64 {
			out := make(map[RowKey]float64)
			for _, r := range frame {
				out[RowKey{r.InternalID, r.Timestamp.Unix()}] = r.Columns["close_1D"] * 2
			}
			return out
		},
	})

	store := newTestPlatform(t)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id, err := store.GetInternalID("AAPL", ts)
	require.NoError(t, err)

	require.NoError(t, store.AddBars([]platform.Bar{
		{InternalID: id, Timestamp: ts.AddDate(0, 0, -1), Timeframe: platform.Timeframe1Day, Open: 10, High: 10, Low: 10, Close: 10, Volume: 1},
		{InternalID: id, Timestamp: ts, Timeframe: platform.Timeframe1Day, Open: 20, High: 20, Low: 20, Close: 20, Volume: 1},
	}))

	signals, err := Run(context.Background(), store, momentumModel{}, []uint64{id}, RunParams{
		Timestamp:    ts,
		Timeframe:    platform.Timeframe1Day,
		LookbackDays: 5,
	})
	require.NoError(t, err)
	require.Contains(t, signals, id)
	assert.InDelta(t, 40.0, signals[id], 1e-9)
}

func TestRun_EmptyIDsReturnsEmptySignals(t *testing.T) {
	store := newTestPlatform(t)
	signals, err := Run(context.Background(), store, momentumModel{}, nil, RunParams{Timestamp: time.Now(), Timeframe: platform.Timeframe1Day, LookbackDays: 5})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestRun_NoBarsReturnsEmptySignals(t *testing.T) {
	store := newTestPlatform(t)
	id, err := store.GetInternalID("AAPL", time.Now())
	require.NoError(t, err)

	signals, err := Run(context.Background(), store, momentumModel{}, []uint64{id}, RunParams{
		Timestamp:    time.Now(),
		Timeframe:    platform.Timeframe1Day,
		LookbackDays: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, signals)
}
