package riskopt

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/systrader/pkg/formulas"
)

// Params configures one Optimizer instance. Field names mirror the
// spec's objective term names directly so callers can wire them straight
// from config.
type Params struct {
	RiskAversion  float64 // λ on the quadratic risk term
	TCPenalty     float64 // c1, linear transaction cost
	ImpactCoef    float64 // c2, superlinear market impact
	LambdaNet     float64 // net exposure (neutrality) penalty weight
	LambdaGross   float64 // gross leverage penalty weight
	LambdaPos     float64 // per-position penalty weight
	LeverageLimit float64 // L, gross leverage budget before penalty kicks in
	MaxPosition   float64 // P, per-position budget before penalty kicks in
}

// Optimizer holds current weights across calls (the "prev_w" the
// transaction-cost and impact penalties measure distance from) and the
// penalty parameters.
type Optimizer struct {
	params  Params
	current map[uint64]float64
}

// NewOptimizer returns an Optimizer with no prior weights (every asset
// starts at zero, so the first solve pays no transaction cost).
func NewOptimizer(params Params) *Optimizer {
	return &Optimizer{params: params, current: make(map[uint64]float64)}
}

// CurrentWeights returns the weights from the last successful solve (empty
// after construction).
func (o *Optimizer) CurrentWeights() map[uint64]float64 {
	out := make(map[uint64]float64, len(o.current))
	for k, v := range o.current {
		out[k] = v
	}
	return out
}

// Optimize solves the soft-penalty QP from spec.md §4.C:
//
//	maximize μ'w - 1/2·λ·w'Σw - c1·‖w-w_prev‖1 - c2·Σ|w-w_prev|^1.5
//	         - λ_net·(Σw)² - λ_gross·max(0,‖w‖1-L)² - λ_pos·Σmax(0,|w_i|-P)²
//
// with no hard constraints, solved by gradient descent (BFGS, falling
// back to Nelder-Mead on non-convergence — the same fallback idiom the
// teacher's mean-variance optimizer uses). ids gives the forecast/Σ
// ordering; factorReturns, if non-nil, tilts μ by B·factorReturns before
// solving. If neither solver converges, or the solver's result is
// non-finite, Optimize falls back to an inverse-variance risk parity
// book (riskParityFallback) rather than leaving the portfolio exactly
// where the last successful solve left it — the optimizer is never
// allowed to propagate a solver exception to its caller, but it also
// never silently goes stale.
func (o *Optimizer) Optimize(ids []uint64, forecasts map[uint64]float64, sigma *mat.Dense, loadings *mat.Dense, factorReturns []float64) map[uint64]float64 {
	n := len(ids)
	if n == 0 {
		return o.CurrentWeights()
	}
	if sigma == nil || sigma.RawMatrix().Rows != n || sigma.RawMatrix().Cols != n {
		return o.CurrentWeights()
	}

	mu := make([]float64, n)
	for i, id := range ids {
		mu[i] = forecasts[id]
	}
	if loadings != nil && factorReturns != nil {
		rows, _ := loadings.Dims()
		if rows == n {
			var tilt mat.VecDense
			tilt.MulVec(loadings, vecOf(factorReturns))
			for i := range mu {
				mu[i] += tilt.AtVec(i)
			}
		}
	}

	prevW := make([]float64, n)
	for i, id := range ids {
		prevW[i] = o.current[id]
	}

	p := o.params
	objective := func(w []float64) float64 {
		var ret, risk float64
		for i := 0; i < n; i++ {
			ret += mu[i] * w[i]
			for j := 0; j < n; j++ {
				risk += w[i] * w[j] * sigma.At(i, j)
			}
		}

		var tc, impact float64
		for i := 0; i < n; i++ {
			d := w[i] - prevW[i]
			tc += math.Abs(d)
			impact += math.Pow(math.Abs(d), 1.5)
		}

		var sumW float64
		for i := 0; i < n; i++ {
			sumW += w[i]
		}
		netPenalty := p.LambdaNet * sumW * sumW

		var grossNorm float64
		for i := 0; i < n; i++ {
			grossNorm += math.Abs(w[i])
		}
		grossExcess := math.Max(0, grossNorm-p.LeverageLimit)
		grossPenalty := p.LambdaGross * grossExcess * grossExcess

		var posPenalty float64
		for i := 0; i < n; i++ {
			excess := math.Max(0, math.Abs(w[i])-p.MaxPosition)
			posPenalty += p.LambdaPos * excess * excess
		}

		utility := ret - 0.5*p.RiskAversion*risk - p.TCPenalty*tc - p.ImpactCoef*impact - netPenalty - grossPenalty - posPenalty
		return -utility // gonum/optimize minimizes
	}

	gradient := func(grad, w []float64) {
		var sumW float64
		for i := 0; i < n; i++ {
			sumW += w[i]
		}
		var grossNorm float64
		for i := 0; i < n; i++ {
			grossNorm += math.Abs(w[i])
		}
		grossExcess := math.Max(0, grossNorm-p.LeverageLimit)

		for i := 0; i < n; i++ {
			var riskTerm float64
			for j := 0; j < n; j++ {
				riskTerm += sigma.At(i, j) * w[j]
			}
			d := w[i] - prevW[i]

			g := mu[i] - p.RiskAversion*riskTerm
			g -= p.TCPenalty * sign(d)
			g -= p.ImpactCoef * 1.5 * math.Sqrt(math.Abs(d)) * sign(d)
			g -= 2 * p.LambdaNet * sumW
			if grossExcess > 0 {
				g -= 2 * p.LambdaGross * grossExcess * sign(w[i])
			}
			excess := math.Abs(w[i]) - p.MaxPosition
			if excess > 0 {
				g -= 2 * p.LambdaPos * excess * sign(w[i])
			}
			grad[i] = -g
		}
	}

	problem := optimize.Problem{Func: objective, Grad: gradient}

	initial := make([]float64, n)
	copy(initial, prevW)

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	}
	if err != nil || result == nil || !converged(result.Status) || !allFinite(result.X) {
		fallback := riskParityFallback(ids, mu, sigma)
		o.current = fallback
		return o.CurrentWeights()
	}

	next := make(map[uint64]float64, n)
	for i, id := range ids {
		next[id] = result.X[i]
	}
	o.current = next
	return o.CurrentWeights()
}

// riskParityFallback returns inverse-variance weights (formulas.
// InverseVarianceWeights, grounded on the teacher's HRP simplification)
// over sigma's diagonal, signed by each asset's forecast, used when
// neither solver converges. It favors low-variance assets the way a
// risk-parity book would, instead of freezing the portfolio at its last
// solved weights.
func riskParityFallback(ids []uint64, mu []float64, sigma *mat.Dense) map[uint64]float64 {
	n := len(ids)
	variances := make([]float64, n)
	for i := 0; i < n; i++ {
		variances[i] = sigma.At(i, i)
	}
	invVarWeights := formulas.InverseVarianceWeights(variances)

	out := make(map[uint64]float64, n)
	for i, id := range ids {
		w := invVarWeights[i]
		if mu[i] < 0 {
			w = -w
		}
		out[id] = w
	}
	return out
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.StepConvergence:
		return true
	default:
		return false
	}
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func vecOf(xs []float64) *mat.VecDense {
	return mat.NewVecDense(len(xs), xs)
}
