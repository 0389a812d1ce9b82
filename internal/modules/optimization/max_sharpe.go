package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// solveMaxSharpe computes the closed-form tangency portfolio
// w* = Σ⁻¹(μ − Rf·1) / (1ᵗΣ⁻¹(μ − Rf·1)). Constraints are applied
// afterwards as the shared clamp, so the clamped vector approximates the
// constrained tangency.
func (e *Engine) solveMaxSharpe(req Request) ([]float64, error) {
	n := len(req.Symbols)
	if n == 1 {
		return []float64{1.0}, nil
	}

	excess := mat.NewVecDense(n, nil)
	for i, r := range req.ExpectedReturns {
		excess.SetVec(i, r-req.RiskFreeRate)
	}

	sigma := denseCovariance(req.Covariance)

	var solved mat.VecDense
	if err := solved.SolveVec(sigma, excess); err != nil {
		// singular covariance: fall back to the penalty solver, which
		// tolerates rank deficiency
		e.log.Warn().Err(err).Msg("Covariance is singular, using iterative solver for max sharpe")
		return e.solveMaxSharpeIterative(req)
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += solved.AtVec(i)
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: tangency weights sum to zero", ErrInfeasible)
	}

	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = solved.AtVec(i) / sum
	}
	return weights, nil
}

// solveMaxSharpeIterative maximizes (μ'w − Rf) / sqrt(w'Σw) numerically.
func (e *Engine) solveMaxSharpeIterative(req Request) ([]float64, error) {
	n := len(req.Symbols)
	mu := req.ExpectedReturns
	sigma := denseCovariance(req.Covariance)
	lower, upper := boundsFor(req.Constraints, n)

	problem := sharpeObjective(mu, sigma, req.RiskFreeRate, lower, upper)
	result, err := minimizeWithFallback(problem, equalWeights(n))
	if err != nil {
		return nil, err
	}

	final := projectToBounds(result.X, lower, upper)
	sum := sumOf(final)
	if sum <= 0 {
		return nil, fmt.Errorf("%w: weights collapsed to zero", ErrInfeasible)
	}
	for i := range final {
		final[i] /= sum
	}
	return final, nil
}

// sharpeObjective builds the negated-Sharpe penalty objective.
func sharpeObjective(mu []float64, sigma *mat.Dense, riskFree, lower, upper float64) optimize.Problem {
	n := len(mu)
	return optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectToBounds(x, lower, upper)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += mu[i] * xp[i]
				for j := 0; j < n; j++ {
					variance += xp[i] * xp[j] * sigma.At(i, j)
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			obj := -(ret - riskFree) / stdDev
			sum := sumOf(xp)
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectToBounds(x, lower, upper)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += mu[i] * xp[i]
				for j := 0; j < n; j++ {
					variance += xp[i] * xp[j] * sigma.At(i, j)
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))
			excess := ret - riskFree

			for i := 0; i < n; i++ {
				var dVar float64
				for j := 0; j < n; j++ {
					dVar += 2 * sigma.At(i, j) * xp[j]
				}
				grad[i] = -mu[i]/stdDev + excess*dVar/(2*stdDev*stdDev*stdDev)
			}

			sum := sumOf(xp)
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		},
	}
}
