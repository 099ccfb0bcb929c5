package alpha

import (
	"math"

	"github.com/aristath/systrader/internal/platform"
)

// Hydrate computes and splices every requested feature (and its
// transitive dependencies) into frame's columns, depth-first and
// memoized: each feature's Compute runs at most once no matter how many
// requested features depend on it. Unknown names are skipped silently —
// a feature library may publish names a model never requests, and the
// reverse (a model requesting a name no library registered) is tolerated
// by simply never writing that column, per spec.md's failure semantics.
func Hydrate(frame platform.Frame, names []string) platform.Frame {
	computed := make(map[string]bool)
	visiting := make(map[string]bool)
	for _, name := range names {
		hydrateOne(frame, name, visiting, computed)
	}
	return frame
}

func hydrateOne(frame platform.Frame, name string, visiting, computed map[string]bool) {
	if computed[name] {
		return
	}
	feat, ok := lookup(name)
	if !ok {
		return
	}
	if visiting[name] {
		// dependency cycle: treat as already satisfied rather than recurse forever.
		return
	}
	visiting[name] = true
	for _, dep := range feat.Deps {
		hydrateOne(frame, dep, visiting, computed)
	}

	values := feat.Compute(frame)
	for i := range frame {
		key := RowKey{frame[i].InternalID, frame[i].Timestamp.Unix()}
		if frame[i].Columns == nil {
			frame[i].Columns = make(map[string]float64)
		}
		if v, ok := values[key]; ok {
			frame[i].Columns[name] = v
		} else {
			frame[i].Columns[name] = math.NaN()
		}
	}

	visiting[name] = false
	computed[name] = true
}
