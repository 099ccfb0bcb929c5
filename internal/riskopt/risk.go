// Package riskopt implements the factor risk model and soft-constraint
// portfolio optimizer: PCA-based covariance estimation via SVD, a
// gradient-based penalty-method solver mirroring the teacher's mean-
// variance optimizer, and the kill-switch/rate-limiter safety rail that
// gates every optimization cycle.
package riskopt

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/systrader/pkg/formulas"
)

// RiskModel holds the most recently estimated factor covariance: loadings
// B (N×K), the reconstructed covariance Σ (N×N), and the asset ordering
// both are indexed by. A zero-value RiskModel has no estimate yet;
// Covariance returns an error until Update succeeds once.
type RiskModel struct {
	mu       sync.RWMutex
	ids      []uint64
	sigma    *mat.Dense
	loadings *mat.Dense
	means    []float64
	stds     []float64
}

// NewRiskModel returns an empty risk model.
func NewRiskModel() *RiskModel {
	return &RiskModel{}
}

// Update re-estimates the factor covariance from returns (a T-observation,
// N-asset return history keyed by id, row-aligned by index) with
// nFactors principal components, mirroring
// original_source/src/portfolio_manager.py's estimate_pca_covariance:
// standardize columns, SVD the standardized matrix, reconstruct factor
// covariance from the first k components, and add a floored specific
// variance on the diagonal before undoing the standardization.
func (m *RiskModel) Update(returns map[uint64][]float64, nFactors int) error {
	ids := sortedIDs(returns)
	n := len(ids)
	if n == 0 {
		return fmt.Errorf("riskopt: no return series supplied")
	}

	t := len(returns[ids[0]])
	for _, id := range ids {
		if len(returns[id]) != t {
			return fmt.Errorf("riskopt: return series length mismatch for id %d", id)
		}
	}
	if t < 2 {
		return fmt.Errorf("riskopt: need at least 2 observations, got %d", t)
	}

	k := nFactors
	if k > t {
		k = t
	}
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}

	means := make([]float64, n)
	stds := make([]float64, n)
	z := mat.NewDense(t, n, nil)
	for j, id := range ids {
		col := returns[id]
		mean := meanOf(col)
		std := stdOf(col, mean)
		if std == 0 {
			std = 1.0
		}
		means[j] = mean
		stds[j] = std
		for i := 0; i < t; i++ {
			z.Set(i, j, (col[i]-mean)/std)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(z, mat.SVDThin); !ok {
		return fmt.Errorf("riskopt: SVD factorization failed")
	}
	singularValues := svd.Values(nil)

	var v mat.Dense
	svd.VTo(&v)

	loadings := mat.NewDense(n, k, nil)
	for j := 0; j < n; j++ {
		for f := 0; f < k; f++ {
			loadings.Set(j, f, v.At(j, f))
		}
	}

	eigvals := make([]float64, k)
	for f := 0; f < k; f++ {
		s := singularValues[f]
		eigvals[f] = (s * s) / float64(t-1)
	}

	var lambda mat.Dense
	lambda.Mul(loadings, diag(eigvals))
	var factorCov mat.Dense
	factorCov.Mul(&lambda, loadings.T())

	sigmaZ := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigmaZ.Set(i, j, factorCov.At(i, j))
		}
	}
	for i := 0; i < n; i++ {
		specVar := math.Max(1-factorCov.At(i, i), 0)
		sigmaZ.Set(i, i, sigmaZ.At(i, i)+specVar)
	}

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, sigmaZ.At(i, j)*stds[i]*stds[j])
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = ids
	m.sigma = sigma
	m.loadings = loadings
	m.means = means
	m.stds = stds
	return nil
}

// Covariance returns the most recent N×N covariance estimate and its id
// ordering. Returns an error if Update was never called successfully.
func (m *RiskModel) Covariance() ([]uint64, *mat.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sigma == nil {
		return nil, nil, fmt.Errorf("riskopt: no covariance estimate available")
	}
	return m.ids, m.sigma, nil
}

// Correlation derives the correlation matrix implied by the most recent
// covariance estimate (formulas.CorrelationMatrixFromCovariance), for
// diagnostics and concentration checks that care about co-movement
// rather than raw variance.
func (m *RiskModel) Correlation() ([]uint64, [][]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sigma == nil {
		return nil, nil, fmt.Errorf("riskopt: no covariance estimate available")
	}
	n, _ := m.sigma.Dims()
	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		cov[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			cov[i][j] = m.sigma.At(i, j)
		}
	}
	corr, err := formulas.CorrelationMatrixFromCovariance(cov)
	if err != nil {
		return nil, nil, fmt.Errorf("riskopt: correlation: %w", err)
	}
	return m.ids, corr, nil
}

// ClusterDistances converts the current correlation matrix into the
// distance metric (formulas.CorrelationToDistance) hierarchical
// clustering uses, the same transform original_source applies before
// building its HRP dendrogram.
func (m *RiskModel) ClusterDistances() ([]uint64, [][]float64, error) {
	ids, corr, err := m.Correlation()
	if err != nil {
		return nil, nil, err
	}
	return ids, formulas.CorrelationToDistance(corr), nil
}

// Loadings returns the N×K factor loadings from the most recent Update.
func (m *RiskModel) Loadings() ([]uint64, *mat.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadings == nil {
		return nil, nil, fmt.Errorf("riskopt: no loadings estimate available")
	}
	return m.ids, m.loadings, nil
}

// ResidualReturns returns each id's return series with its PCA-explained
// component removed: (Z - Z_explained) * σ, re-scaled back into return
// units. Consumed by alpha features that want returns net of common
// factor exposure.
func (m *RiskModel) ResidualReturns(returns map[uint64][]float64) (map[uint64][]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadings == nil {
		return nil, fmt.Errorf("riskopt: no loadings estimate available")
	}

	ids := m.ids
	n := len(ids)
	t := len(returns[ids[0]])
	z := mat.NewDense(t, n, nil)
	for j, id := range ids {
		col, ok := returns[id]
		if !ok || len(col) != t {
			return nil, fmt.Errorf("riskopt: return series missing or mismatched for id %d", id)
		}
		mean, std := m.means[j], m.stds[j]
		for i := 0; i < t; i++ {
			z.Set(i, j, (col[i]-mean)/std)
		}
	}

	// Z_explained = Z * B * B^T (projection onto the factor subspace).
	var zb mat.Dense
	zb.Mul(z, m.loadings)
	var explained mat.Dense
	explained.Mul(&zb, m.loadings.T())

	out := make(map[uint64][]float64, n)
	for j, id := range ids {
		series := make([]float64, t)
		for i := 0; i < t; i++ {
			resid := z.At(i, j) - explained.At(i, j)
			series[i] = resid * m.stds[j]
		}
		out[id] = series
	}
	return out, nil
}

func diag(values []float64) *mat.Dense {
	d := mat.NewDense(len(values), len(values), nil)
	for i, v := range values {
		d.Set(i, i, v)
	}
	return d
}

func sortedIDs(returns map[uint64][]float64) []uint64 {
	ids := make([]uint64, 0, len(returns))
	for id := range returns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdOf(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}
