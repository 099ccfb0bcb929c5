package alpha

import "math"

// ZScore standardizes a signal map to zero mean, unit variance. Returns
// all zeros if the map is empty or its standard deviation is zero (a
// degenerate, all-equal cross-section).
func ZScore(signals map[uint64]float64) map[uint64]float64 {
	out := make(map[uint64]float64, len(signals))
	if len(signals) == 0 {
		return out
	}

	var sum float64
	for _, v := range signals {
		sum += v
	}
	mean := sum / float64(len(signals))

	var sumSq float64
	for _, v := range signals {
		d := v - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(signals)))

	if std == 0 {
		for k := range signals {
			out[k] = 0
		}
		return out
	}
	for k, v := range signals {
		out[k] = (v - mean) / std
	}
	return out
}

// Winsorize clamps every value to [-limit, limit].
func Winsorize(signals map[uint64]float64, limit float64) map[uint64]float64 {
	out := make(map[uint64]float64, len(signals))
	for k, v := range signals {
		switch {
		case v > limit:
			out[k] = limit
		case v < -limit:
			out[k] = -limit
		default:
			out[k] = v
		}
	}
	return out
}

// Combine returns the weighted sum of maps keyed by id. A key missing from
// a particular map contributes zero for that map's term. weights defaults
// to 1/N (an equal-weighted average) when nil or empty.
func Combine(maps []map[uint64]float64, weights []float64) map[uint64]float64 {
	out := make(map[uint64]float64)
	if len(maps) == 0 {
		return out
	}
	if len(weights) == 0 {
		w := 1.0 / float64(len(maps))
		weights = make([]float64, len(maps))
		for i := range weights {
			weights[i] = w
		}
	}

	ids := make(map[uint64]bool)
	for _, m := range maps {
		for id := range m {
			ids[id] = true
		}
	}

	for id := range ids {
		var acc float64
		for i, m := range maps {
			acc += weights[i] * m[id]
		}
		out[id] = acc
	}
	return out
}
