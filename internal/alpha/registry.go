// Package alpha implements the feature and alpha engine: a process-wide
// feature registry, dependency-ordered hydration onto a cross-sectional
// history frame, a task-scoped execution context for model runs, and the
// zscore/winsorize/combine signal primitives models compose forecasts
// from.
package alpha

import (
	"fmt"
	"sync"

	"github.com/aristath/systrader/internal/platform"
)

// RowKey identifies one cross-sectional observation a feature computes a
// value for. Using (id, unix-timestamp) rather than a row index lets a
// Compute func return a sparse map without caring about the frame's row
// ordering.
type RowKey struct {
	InternalID uint64
	Timestamp  int64
}

// ComputeFunc derives one feature column from a frame that already
// carries every one of the feature's declared dependencies. It returns a
// value per (id, timestamp) the feature can be computed for; rows it has
// nothing to say about are left absent, and hydrate fills those with NaN.
type ComputeFunc func(frame platform.Frame) map[RowKey]float64

// Feature is one registry entry: a name, its dependency names (which must
// already be hydrated before Compute runs), and the compute function
// itself.
type Feature struct {
	Name    string
	Deps    []string
	Compute ComputeFunc
}

var registry = struct {
	mu       sync.RWMutex
	features map[string]Feature
}{features: make(map[string]Feature)}

// Register adds a feature to the process-wide registry. Per spec, the
// registry is populated once at startup (typically via package-level
// init() in internal/alpha/library) and never mutated afterward; Register
// panics on a duplicate name to catch that mistake immediately rather than
// let two features silently shadow each other mid-run.
func Register(f Feature) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.features[f.Name]; exists {
		panic(fmt.Sprintf("alpha: duplicate feature registration %q", f.Name))
	}
	registry.features[f.Name] = f
}

// MultiTF expands a base feature declaration across timeframes: base_name
// becomes <base_name>_<tf>, and each declared dependency becomes
// <dep>_<tf>. factory builds the per-timeframe compute func, closing over
// tf so it knows which column suffix to read.
func MultiTF(baseName string, timeframes []platform.Timeframe, deps []string, factory func(tf platform.Timeframe) ComputeFunc) {
	for _, tf := range timeframes {
		expandedDeps := make([]string, len(deps))
		for i, d := range deps {
			expandedDeps[i] = d + "_" + string(tf)
		}
		Register(Feature{
			Name:    baseName + "_" + string(tf),
			Deps:    expandedDeps,
			Compute: factory(tf),
		})
	}
}

func lookup(name string) (Feature, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	f, ok := registry.features[name]
	return f, ok
}

// Reset clears the registry. Exists only for tests that register
// throwaway features without polluting the process-wide table used by
// internal/alpha/library in production.
func Reset() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.features = make(map[string]Feature)
}
