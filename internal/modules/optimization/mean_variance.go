package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const penaltyWeight = 1000.0

// solveMeanVariance minimizes portfolio variance w'Σw with the budget
// constraint Σw=1 (and the return target when one is set) folded in as
// quadratic penalties. NelderMead first, BFGS as fallback.
func (e *Engine) solveMeanVariance(req Request) ([]float64, error) {
	target := req.TargetReturn
	sigma := denseCovariance(req.Covariance)
	return e.penaltySolve(req.ExpectedReturns, sigma, req.Constraints, target)
}

// solveMinVolatility runs the variance minimization anchored at a return
// target slightly above the universe minimum, so the solve cannot collapse
// into the single lowest-risk asset regardless of return.
func (e *Engine) solveMinVolatility(req Request) ([]float64, error) {
	lo, hi := returnRange(req.ExpectedReturns)
	target := lo + 0.1*(hi-lo)
	sigma := denseCovariance(req.Covariance)
	return e.penaltySolve(req.ExpectedReturns, sigma, req.Constraints, &target)
}

// penaltySolve is the shared quadratic-penalty variance minimizer.
func (e *Engine) penaltySolve(mu []float64, sigma *mat.Dense, c Constraints, targetReturn *float64) ([]float64, error) {
	n := len(mu)
	if n == 1 {
		return []float64{1.0}, nil
	}

	lower, upper := boundsFor(c, n)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectToBounds(x, lower, upper)

			var variance float64
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					variance += xp[i] * xp[j] * sigma.At(i, j)
				}
			}

			obj := variance

			sum := sumOf(xp)
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)

			if targetReturn != nil {
				var ret float64
				for i := 0; i < n; i++ {
					ret += mu[i] * xp[i]
				}
				obj += penaltyWeight * (ret - *targetReturn) * (ret - *targetReturn)
			}

			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectToBounds(x, lower, upper)

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * sigma.At(i, j) * xp[j]
				}
			}

			sum := sumOf(xp)
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}

			if targetReturn != nil {
				var ret float64
				for i := 0; i < n; i++ {
					ret += mu[i] * xp[i]
				}
				for i := 0; i < n; i++ {
					grad[i] += 2 * penaltyWeight * (ret - *targetReturn) * mu[i]
				}
			}
		},
	}

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
		final[i] = math.Max(0, final[i]/sum)
	}
	return final, nil
}

// minimizeWithFallback tries NelderMead, then BFGS when the first run does
// not reach an accepted convergence status.
func minimizeWithFallback(problem optimize.Problem, initial []float64) (*optimize.Result, error) {
	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err == nil && successStatuses[result.Status] {
		return result, nil
	}

	result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfeasible, err)
	}
	if !successStatuses[result.Status] {
		return nil, fmt.Errorf("%w: solver status %v", ErrInfeasible, result.Status)
	}
	return result, nil
}

func denseCovariance(cov [][]float64) *mat.Dense {
	n := len(cov)
	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, cov[i][j])
		}
	}
	return sigma
}

// boundsFor derives per-asset solver bounds from the constraint set. The
// solver works inside slightly loose bounds; ApplyConstraints does the
// exact clamp afterwards.
func boundsFor(c Constraints, n int) (lower, upper float64) {
	lower = math.Inf(-1)
	if c.LongOnly {
		lower = 0
	}
	upper = math.Inf(1)
	if c.MaxWeight > 0 {
		upper = c.MaxWeight
	}
	// infeasible cap (n assets cannot reach sum 1): relax to equal weight
	if c.MaxWeight > 0 && c.MaxWeight*float64(n) < 1 {
		upper = 1.0 / float64(n)
	}
	return lower, upper
}

func returnRange(mu []float64) (lo, hi float64) {
	lo, hi = mu[0], mu[0]
	for _, v := range mu[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
