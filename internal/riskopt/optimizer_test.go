package riskopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func defaultParams() Params {
	return Params{
		RiskAversion:  1.0,
		TCPenalty:     0.001,
		ImpactCoef:    0.005,
		LambdaNet:     10.0,
		LambdaGross:   5.0,
		LambdaPos:     1.0,
		LeverageLimit: 1.0,
		MaxPosition:   0.5,
	}
}

// S7 — optimizer neutrality under factor exposure.
func TestOptimize_NeutralityUnderFactorExposure(t *testing.T) {
	ids := []uint64{1, 2}
	forecasts := map[uint64]float64{1: 0, 2: 0}
	sigma := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	loadings := mat.NewDense(2, 1, []float64{1, -1})
	factorReturns := []float64{0.05}

	opt := NewOptimizer(defaultParams())
	w := opt.Optimize(ids, forecasts, sigma, loadings, factorReturns)

	assert.Greater(t, w[1], 0.0)
	assert.Less(t, w[2], 0.0)
}

// Property 5 — stability under tiny forecast perturbation.
func TestOptimize_StableUnderTinyForecastPerturbation(t *testing.T) {
	ids := []uint64{1, 2, 3}
	sigma := mat.NewDense(3, 3, []float64{
		0.04, 0.01, 0.00,
		0.01, 0.03, 0.01,
		0.00, 0.01, 0.05,
	})

	base := map[uint64]float64{1: 0.02, 2: -0.01, 3: 0.015}
	opt1 := NewOptimizer(defaultParams())
	w1 := opt1.Optimize(ids, base, sigma, nil, nil)

	perturbed := map[uint64]float64{1: 0.0201, 2: -0.0099, 3: 0.0151}
	opt2 := NewOptimizer(defaultParams())
	w2 := opt2.Optimize(ids, perturbed, sigma, nil, nil)

	for _, id := range ids {
		assert.InDelta(t, w1[id], w2[id], 0.05)
	}
}

func TestOptimize_EmptyForecastsReturnsCurrentWeights(t *testing.T) {
	opt := NewOptimizer(defaultParams())
	w := opt.Optimize(nil, nil, nil, nil, nil)
	assert.Empty(t, w)
}

func TestOptimize_DimensionMismatchReturnsCurrentWeights(t *testing.T) {
	opt := NewOptimizer(defaultParams())
	ids := []uint64{1, 2}
	forecasts := map[uint64]float64{1: 0.1, 2: 0.2}
	sigma := mat.NewDense(3, 3, nil) // wrong size for 2 ids
	w := opt.Optimize(ids, forecasts, sigma, nil, nil)
	assert.Empty(t, w)
}

func TestOptimize_PersistsWeightsAcrossCalls(t *testing.T) {
	opt := NewOptimizer(defaultParams())
	ids := []uint64{1, 2}
	sigma := mat.NewDense(2, 2, []float64{0.02, 0.0, 0.0, 0.02})

	first := opt.Optimize(ids, map[uint64]float64{1: 0.05, 2: -0.05}, sigma, nil, nil)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, opt.CurrentWeights())
}
