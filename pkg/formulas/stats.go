package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor used throughout the engine.
const TradingDaysPerYear = 252.0

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// LogReturns converts a price series to daily log-returns: ln(P_t / P_{t-1}).
// Prices that are zero or negative are treated as missing and the
// corresponding return is skipped, so the output may be shorter than
// len(prices)-1.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] > 0 && prices[i-1] > 0 {
			returns = append(returns, math.Log(prices[i]/prices[i-1]))
		}
	}
	return returns
}

// AnnualizedVolatility calculates annualized volatility from daily returns.
// Formula: Std Dev of Daily Returns x sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// PortfolioReturn calculates the expected portfolio return: w' * mu.
// Weights and returns must have the same length.
func PortfolioReturn(weights, expectedReturns []float64) float64 {
	if len(weights) != len(expectedReturns) {
		return 0
	}
	var total float64
	for i, w := range weights {
		total += w * expectedReturns[i]
	}
	return total
}

// PortfolioVolatility calculates portfolio volatility: sqrt(w' * Sigma * w).
func PortfolioVolatility(weights []float64, covMatrix [][]float64) float64 {
	n := len(weights)
	if n == 0 || len(covMatrix) != n {
		return 0
	}

	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * covMatrix[i][j]
		}
	}
	return math.Sqrt(math.Max(variance, 0))
}

// SharpeRatio calculates the risk-adjusted return: (return - riskFree) / volatility.
// Returns 0 when volatility is zero to avoid division by zero.
func SharpeRatio(portfolioReturn, volatility, riskFreeRate float64) float64 {
	if volatility <= 0 {
		return 0
	}
	return (portfolioReturn - riskFreeRate) / volatility
}
