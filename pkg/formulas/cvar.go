package formulas

import (
	"math"
	"sort"
)

// CalculateCVaR calculates Conditional Value at Risk at the specified tail
// probability alpha. CVaR is the mean of the worst floor(alpha*N) returns
// (at least one observation is always included).
//
// Args:
//   - returns: Return observations (negative values are losses)
//   - alpha: Tail probability (e.g., 0.05 for the worst 5%)
//
// Returns:
//   - CVaR value (negative for losses, positive for gains in tail)
func CalculateCVaR(returns []float64, alpha float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	if len(returns) == 1 {
		return returns[0]
	}

	// Sort returns in ascending order (worst first)
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	tailCount := int(math.Floor(float64(len(sorted)) * alpha))
	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	// CVaR is the average of returns in the tail
	tail := sorted[:tailCount]
	sum := 0.0
	for _, r := range tail {
		sum += r
	}

	return sum / float64(len(tail))
}

// ScenarioCVaR calculates CVaR of a weighted portfolio over a set of
// simulated per-asset return scenarios. Each scenario is a vector of asset
// returns in the same order as weights.
func ScenarioCVaR(weights []float64, scenarios [][]float64, alpha float64) float64 {
	if len(scenarios) == 0 || len(weights) == 0 {
		return 0.0
	}

	portfolioReturns := make([]float64, len(scenarios))
	for i, scenario := range scenarios {
		portfolioReturns[i] = PortfolioReturn(weights, scenario)
	}

	return CalculateCVaR(portfolioReturns, alpha)
}
