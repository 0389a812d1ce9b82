package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := LogReturns(prices)

	require.Len(t, returns, 2)
	assert.InDelta(t, math.Log(1.1), returns[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), returns[1], 1e-12)
}

func TestLogReturns_SkipsNonPositivePrices(t *testing.T) {
	prices := []float64{100, 0, 110, -5, 121}
	returns := LogReturns(prices)

	// Only the 110 -> 121 transition has two valid prices.
	require.Len(t, returns, 1)
	assert.InDelta(t, math.Log(1.1), returns[0], 1e-12)
}

func TestLogReturns_TooShort(t *testing.T) {
	assert.Empty(t, LogReturns([]float64{100}))
	assert.Empty(t, LogReturns(nil))
}

func TestPortfolioReturn(t *testing.T) {
	weights := []float64{0.6, 0.4}
	mu := []float64{0.10, 0.05}

	assert.InDelta(t, 0.08, PortfolioReturn(weights, mu), 1e-12)
}

func TestPortfolioVolatility(t *testing.T) {
	// Two uncorrelated assets: var = w1^2*v1 + w2^2*v2
	weights := []float64{0.5, 0.5}
	cov := [][]float64{
		{0.04, 0.0},
		{0.0, 0.01},
	}

	expected := math.Sqrt(0.25*0.04 + 0.25*0.01)
	assert.InDelta(t, expected, PortfolioVolatility(weights, cov), 1e-12)
}

func TestSharpeRatio(t *testing.T) {
	assert.InDelta(t, 0.4, SharpeRatio(0.10, 0.20, 0.02), 1e-12)
	assert.Equal(t, 0.0, SharpeRatio(0.10, 0.0, 0.02), "zero volatility must not divide by zero")
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, -0.02}
	expected := StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, expected, AnnualizedVolatility(returns), 1e-12)
}
