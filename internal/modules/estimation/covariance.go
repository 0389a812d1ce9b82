package estimation

import (
	"github.com/aristath/folio/pkg/formulas"
)

// sampleCovariance computes the annualized sample covariance matrix. Each
// pair is estimated over the overlapping most recent observations of the two
// return series. A symbol with fewer than 2 returns gets the default
// variance on the diagonal and zero covariance with everything else.
func (e *Engine) sampleCovariance(symbols []string, returnsBySymbol map[string][]float64) [][]float64 {
	n := len(symbols)
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		ri := returnsBySymbol[symbols[i]]
		if len(ri) < 2 {
			cov[i][i] = e.cfg.DefaultVariance
			continue
		}
		cov[i][i] = formulas.Variance(ri) * formulas.TradingDaysPerYear

		for j := i + 1; j < n; j++ {
			rj := returnsBySymbol[symbols[j]]
			if len(rj) < 2 {
				continue
			}
			a, b := alignTails(ri, rj)
			if len(a) < 2 {
				continue
			}
			c := formulas.Covariance(a, b) * formulas.TradingDaysPerYear
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	return cov
}

// shrinkageCovariance blends the sample estimate toward a constant
// correlation target: (1-delta)*Sample + delta*Target, where the target's
// diagonal is the average sample variance and its off-diagonal the average
// sample covariance. delta=0 reproduces the sample matrix exactly.
func (e *Engine) shrinkageCovariance(symbols []string, returnsBySymbol map[string][]float64, delta float64) [][]float64 {
	sample := e.sampleCovariance(symbols, returnsBySymbol)
	if delta == 0 {
		return sample
	}

	n := len(sample)
	if n == 0 {
		return sample
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sample[i][i]
		for j := i + 1; j < n; j++ {
			avgCov += sample[i][j]
		}
	}
	avgVar /= float64(n)
	if pairs := n * (n - 1) / 2; pairs > 0 {
		avgCov /= float64(pairs)
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			target := avgCov
			if i == j {
				target = avgVar
			}
			out[i][j] = (1-delta)*sample[i][j] + delta*target
		}
	}

	return out
}
