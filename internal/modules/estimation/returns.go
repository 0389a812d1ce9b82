package estimation

import (
	"math"

	"github.com/aristath/folio/pkg/formulas"
)

// logReturnsWindow computes daily log-returns over the last lookback closes.
func logReturnsWindow(closes []float64, lookback int) []float64 {
	if len(closes) > lookback {
		closes = closes[len(closes)-lookback:]
	}
	return formulas.LogReturns(closes)
}

// historicalMeanReturns annualizes the plain average of daily log-returns.
// Symbols with fewer than 2 usable closes get exactly 0.
func (e *Engine) historicalMeanReturns(symbols []string, returnsBySymbol map[string][]float64) []float64 {
	mu := make([]float64, len(symbols))
	for i, sym := range symbols {
		rets := returnsBySymbol[sym]
		if len(rets) == 0 {
			mu[i] = 0
			continue
		}
		mu[i] = formulas.Mean(rets) * formulas.TradingDaysPerYear
	}
	return mu
}

// exponentialWeightedReturns weights recent days more heavily using decay
// factor lambda, then annualizes.
func (e *Engine) exponentialWeightedReturns(symbols []string, returnsBySymbol map[string][]float64) []float64 {
	lambda := e.cfg.EWMALambda
	mu := make([]float64, len(symbols))
	for i, sym := range symbols {
		rets := returnsBySymbol[sym]
		n := len(rets)
		if n == 0 {
			mu[i] = 0
			continue
		}

		var weightedSum, weightTotal float64
		for j, r := range rets {
			w := math.Pow(lambda, float64(n-1-j))
			weightedSum += w * r
			weightTotal += w
		}
		if weightTotal == 0 {
			mu[i] = 0
			continue
		}
		mu[i] = (weightedSum / weightTotal) * formulas.TradingDaysPerYear
	}
	return mu
}

// capmReturns derives each asset's expected return from its beta against the
// market proxy: E[R] = Rf + beta * (Rm - Rf). Covariance and the proxy
// variance are both computed over the overlapping tail of the two return
// series; beta defaults to 1.0 when the overlap is too thin or the proxy is
// flat over it.
func (e *Engine) capmReturns(symbols []string, returnsBySymbol map[string][]float64, marketPrices []float64, lookback int) []float64 {
	marketRets := logReturnsWindow(marketPrices, lookback)

	premium := e.cfg.MarketReturn - e.cfg.RiskFreeRate
	mu := make([]float64, len(symbols))
	for i, sym := range symbols {
		beta := 1.0
		rets := returnsBySymbol[sym]
		if len(rets) >= 2 && len(marketRets) >= 2 {
			a, m := alignTails(rets, marketRets)
			if len(a) >= 2 {
				if v := formulas.Variance(m); v > 0 {
					beta = formulas.Covariance(a, m) / v
				}
			}
		}
		mu[i] = e.cfg.RiskFreeRate + beta*premium
	}
	return mu
}

// equilibriumReturns computes the implied equilibrium return vector
// Pi = delta * Sigma * w using equal market weights. View blending happens
// in the optimizer, which receives the caller's views; without views the
// equilibrium vector is the Black-Litterman prior itself.
func (e *Engine) equilibriumReturns(symbols []string, cov [][]float64) []float64 {
	n := len(symbols)
	mu := make([]float64, n)
	if n == 0 {
		return mu
	}

	const riskAversion = 3.0
	w := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += cov[i][j] * w
		}
		mu[i] = riskAversion * sum
	}
	return mu
}

// alignTails trims two return series to their overlapping most recent
// observations.
func alignTails(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}
