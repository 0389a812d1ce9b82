package optimization

import (
	"math"

	"github.com/aristath/folio/pkg/formulas"
)

const (
	riskParityTolerance = 1e-6
	riskParityMaxIters  = 100
)

// solveRiskParity equalizes each asset's contribution to portfolio risk.
// Starting equal-weighted, each iteration measures the marginal risk
// contribution (Σw)ᵢ/σ_p per asset and rescales wᵢ by sqrt(target/current)
// toward the equal-contribution target σ_p/n, renormalizing until the total
// weight change falls below tolerance. Expected returns play no role.
func (e *Engine) solveRiskParity(req Request) ([]float64, error) {
	n := len(req.Symbols)
	if n == 1 {
		return []float64{1.0}, nil
	}

	cov := req.Covariance
	weights := equalWeights(n)

	for iter := 0; iter < riskParityMaxIters; iter++ {
		vol := formulas.PortfolioVolatility(weights, cov)
		if vol <= 0 {
			// degenerate covariance: equal weight is as good as anything
			return weights, nil
		}

		target := vol / float64(n)
		next := make([]float64, n)
		for i := 0; i < n; i++ {
			var sigmaW float64
			for j := 0; j < n; j++ {
				sigmaW += cov[i][j] * weights[j]
			}
			contribution := weights[i] * sigmaW / vol
			if contribution <= 0 {
				next[i] = weights[i]
				continue
			}
			next[i] = weights[i] * math.Sqrt(target/contribution)
		}

		sum := sumOf(next)
		if sum <= 0 {
			return weights, nil
		}
		for i := range next {
			next[i] /= sum
		}

		var change float64
		for i := range next {
			change += math.Abs(next[i] - weights[i])
		}
		weights = next

		if change < riskParityTolerance {
			break
		}
	}

	return weights, nil
}
