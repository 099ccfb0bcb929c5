package alpha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine_Linearity(t *testing.T) {
	single := map[uint64]float64{1: 0.6, 2: 1.0}
	assert.Equal(t, single, Combine([]map[uint64]float64{single}, []float64{1.0}))

	doubled := Combine([]map[uint64]float64{single, single}, []float64{0.5, 0.5})
	assert.InDelta(t, single[1], doubled[1], 1e-9)
	assert.InDelta(t, single[2], doubled[2], 1e-9)
}

func TestCombine_S4Scenario(t *testing.T) {
	a := map[uint64]float64{1: 0.6, 2: 1.0}
	b := map[uint64]float64{1: 0.4, 2: 0.2}

	out := Combine([]map[uint64]float64{a, b}, []float64{0.5, 0.5})
	assert.InDelta(t, 0.5, out[1], 1e-9)
	assert.InDelta(t, 0.6, out[2], 1e-9)
}

func TestCombine_MissingKeyContributesZero(t *testing.T) {
	a := map[uint64]float64{1: 1.0}
	b := map[uint64]float64{2: 1.0}

	out := Combine([]map[uint64]float64{a, b}, []float64{1.0, 1.0})
	assert.InDelta(t, 1.0, out[1], 1e-9)
	assert.InDelta(t, 1.0, out[2], 1e-9)
}

func TestZScore_EmptyOrZeroStdReturnsZeros(t *testing.T) {
	assert.Empty(t, ZScore(map[uint64]float64{}))

	flat := map[uint64]float64{1: 5, 2: 5, 3: 5}
	out := ZScore(flat)
	for _, v := range out {
		assert.Equal(t, 0.0, v)
	}
}

func TestZScore_Standardizes(t *testing.T) {
	signals := map[uint64]float64{1: 1, 2: 2, 3: 3}
	out := ZScore(signals)

	var sum float64
	for _, v := range out {
		sum += v
	}
	assert.InDelta(t, 0.0, sum, 1e-9)
}

func TestWinsorize_Clamps(t *testing.T) {
	out := Winsorize(map[uint64]float64{1: 10, 2: -10, 3: 1}, 3.0)
	assert.Equal(t, 3.0, out[1])
	assert.Equal(t, -3.0, out[2])
	assert.Equal(t, 1.0, out[3])
}
