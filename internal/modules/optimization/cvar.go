package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/folio/pkg/formulas"
)

// solveCVaRMin searches for the weight vector with the least-bad expected
// shortfall over the supplied Monte Carlo scenarios. CVaR here is the mean
// portfolio return over the worst α fraction of scenarios (a negative
// number for risky portfolios), so the objective maximizes it. The scenario
// loss surface is piecewise-linear in w; NelderMead handles the kinks where
// a gradient-based method would stall.
func (e *Engine) solveCVaRMin(req Request) ([]float64, error) {
	n := len(req.Symbols)
	if len(req.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: cvar_min requires monte carlo scenarios", ErrInfeasible)
	}
	for i, s := range req.Scenarios {
		if len(s) != n {
			return nil, fmt.Errorf("%w: scenario %d has %d assets, expected %d", ErrDimensionMismatch, i, len(s), n)
		}
	}
	if n == 1 {
		return []float64{1.0}, nil
	}

	alpha := req.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}

	lower, upper := boundsFor(req.Constraints, n)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectToBounds(x, lower, upper)

			obj := -formulas.ScenarioCVaR(xp, req.Scenarios, alpha)

			sum := sumOf(xp)
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
	}

	result, err := optimize.Minimize(problem, equalWeights(n), &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfeasible, err)
	}
	switch result.Status {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold:
	default:
		return nil, fmt.Errorf("%w: solver status %v", ErrInfeasible, result.Status)
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
