package alpha

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/systrader/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrate_ComputesDependenciesOnceAndInOrder(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var depRuns, topRuns int
	Register(Feature{
		Name: "dep",
		Compute: func(frame platform.Frame) map[RowKey]float64 {
			depRuns++
			out := make(map[RowKey]float64)
			for _, r := range frame {
				out[RowKey{r.InternalID, r.Timestamp.Unix()}] = 1
			}
			return out
		},
	})
	Register(Feature{
		Name: "top",
		Deps: []string{"dep", "top2"},
		Compute: func(frame platform.Frame) map[RowKey]float64 {
			topRuns++
			out := make(map[RowKey]float64)
			for _, r := range frame {
				out[RowKey{r.InternalID, r.Timestamp.Unix()}] = r.Columns["dep"] + 1
			}
			return out
		},
	})
	Register(Feature{
		Name: "top2",
		Deps: []string{"dep"},
		Compute: func(frame platform.Frame) map[RowKey]float64 {
			out := make(map[RowKey]float64)
			for _, r := range frame {
				out[RowKey{r.InternalID, r.Timestamp.Unix()}] = r.Columns["dep"] + 2
			}
			return out
		},
	})

	ts := time.Unix(0, 0)
	frame := platform.Frame{{InternalID: 1, Timestamp: ts, Columns: map[string]float64{}}}
	Hydrate(frame, []string{"top"})

	assert.Equal(t, 1, depRuns, "dep must be computed exactly once even though both top and top2 depend on it")
	assert.Equal(t, 1, topRuns)
	assert.InDelta(t, 1.0, frame[0].Columns["dep"], 1e-9)
	assert.InDelta(t, 2.0, frame[0].Columns["top"], 1e-9)
}

func TestHydrate_UnknownFeatureSkippedSilently(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	frame := platform.Frame{{InternalID: 1, Timestamp: time.Unix(0, 0), Columns: map[string]float64{}}}
	require.NotPanics(t, func() { Hydrate(frame, []string{"does_not_exist"}) })
	_, ok := frame[0].Columns["does_not_exist"]
	assert.False(t, ok)
}

func TestHydrate_MissingValueFilledWithNaN(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register(Feature{
		Name: "sparse",
		Compute: func(frame platform.Frame) map[RowKey]float64 {
			return map[RowKey]float64{} // never produces a value for any row
		},
	})

	frame := platform.Frame{{InternalID: 1, Timestamp: time.Unix(0, 0), Columns: map[string]float64{}}}
	Hydrate(frame, []string{"sparse"})
	assert.True(t, math.IsNaN(frame[0].Columns["sparse"]))
}
