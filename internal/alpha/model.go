package alpha

import (
	"context"
	"sort"
	"time"

	"github.com/aristath/systrader/internal/platform"
)

// AlphaModel is implemented by a concrete trading strategy. RequestedFeatures
// names the columns Run must hydrate before invoking ComputeSignals;
// ComputeSignals runs inside the scoped context Run establishes, so it may
// call GetEvents for its as_of-bound side channel.
type AlphaModel interface {
	RequestedFeatures() []string
	ComputeSignals(ctx context.Context, latest platform.Frame, returns map[uint64][]float64) map[uint64]float64
}

// RunParams parameterizes one model run.
type RunParams struct {
	Timestamp    time.Time
	Timeframe    platform.Timeframe
	LookbackDays int
}

// Run executes the four-step model-run algorithm: fetch bars over the
// lookback window, hydrate the model's requested features, slice to the
// row group at Timestamp, then invoke ComputeSignals inside a scoped
// context bound to (store, Timestamp). An empty id list or empty bar
// history yields empty signals, never an error.
func Run(ctx context.Context, store *platform.Store, model AlphaModel, ids []uint64, params RunParams) (map[uint64]float64, error) {
	if len(ids) == 0 {
		return map[uint64]float64{}, nil
	}

	start := params.Timestamp.AddDate(0, 0, -params.LookbackDays)

	returns, err := store.GetReturns(ids, start, params.Timestamp, nil)
	if err != nil {
		return nil, err
	}

	frame, err := store.GetBars(ids, platform.BarQuery{
		Start:     start,
		End:       params.Timestamp,
		Timeframe: params.Timeframe,
		Adjust:    true,
	})
	if err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return map[uint64]float64{}, nil
	}

	frame = Hydrate(frame, model.RequestedFeatures())
	latest := sliceAtTimestamp(frame, params.Timestamp)

	scoped := withScope(ctx, store, params.Timestamp)
	return model.ComputeSignals(scoped, latest, returns), nil
}

// sliceAtTimestamp returns the row group whose Timestamp equals t, sorted
// by internal id for determinism.
func sliceAtTimestamp(frame platform.Frame, t time.Time) platform.Frame {
	target := t.Unix()
	var out platform.Frame
	for _, row := range frame {
		if row.Timestamp.Unix() == target {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InternalID < out[j].InternalID })
	return out
}
