package riskopt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deterministicSeries avoids math/rand's global seed being affected by
// test run order by using a fixed local generator.
func deterministicSeries(seed int64, t int, mean, scale float64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, t)
	for i := range out {
		out[i] = mean + scale*(r.Float64()-0.5)
	}
	return out
}

func TestRiskModel_UpdateProducesSymmetricPositiveDiagonalCovariance(t *testing.T) {
	returns := map[uint64][]float64{
		1000: deterministicSeries(1, 60, 0.001, 0.02),
		1001: deterministicSeries(2, 60, 0.0005, 0.015),
		1002: deterministicSeries(3, 60, -0.0002, 0.03),
	}

	model := NewRiskModel()
	require.NoError(t, model.Update(returns, 2))

	ids, sigma, err := model.Covariance()
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{1000, 1001, 1002}, ids)

	n, _ := sigma.Dims()
	for i := 0; i < n; i++ {
		assert.GreaterOrEqual(t, sigma.At(i, i), 0.0, "variance must be non-negative")
		for j := 0; j < n; j++ {
			assert.InDelta(t, sigma.At(i, j), sigma.At(j, i), 1e-9, "covariance must be symmetric")
		}
	}
}

func TestRiskModel_Covariance_ErrorsBeforeUpdate(t *testing.T) {
	model := NewRiskModel()
	_, _, err := model.Covariance()
	assert.Error(t, err)
}

func TestRiskModel_ResidualReturns_ZeroWhenFullyExplained(t *testing.T) {
	// A single asset with k=1 factor is fully explained by its own
	// principal component — residual should be ~0.
	returns := map[uint64][]float64{
		1000: deterministicSeries(7, 40, 0.001, 0.02),
	}
	model := NewRiskModel()
	require.NoError(t, model.Update(returns, 1))

	resid, err := model.ResidualReturns(returns)
	require.NoError(t, err)
	for _, v := range resid[1000] {
		assert.InDelta(t, 0.0, v, 1e-6)
	}
}
