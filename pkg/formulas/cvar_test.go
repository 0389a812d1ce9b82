package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCVaR(t *testing.T) {
	// 20 returns, worst first after sorting: -0.10, -0.08, ...
	returns := []float64{
		-0.10, -0.08, -0.05, -0.03, -0.02,
		-0.01, 0.00, 0.01, 0.01, 0.02,
		0.02, 0.03, 0.03, 0.04, 0.04,
		0.05, 0.06, 0.07, 0.08, 0.10,
	}

	// 5% tail of 20 observations = 1 observation (the worst).
	cvar5 := CalculateCVaR(returns, 0.05)
	assert.InDelta(t, -0.10, cvar5, 1e-12)

	// 10% tail = 2 observations.
	cvar10 := CalculateCVaR(returns, 0.10)
	assert.InDelta(t, (-0.10-0.08)/2, cvar10, 1e-12)
}

func TestCalculateCVaR_TailOrdering(t *testing.T) {
	returns := []float64{
		-0.12, -0.07, -0.04, -0.02, 0.0,
		0.01, 0.02, 0.03, 0.05, 0.08,
		-0.09, 0.04, 0.06, -0.01, 0.02,
		0.03, -0.03, 0.07, 0.01, 0.0,
	}

	// A smaller tail is always at least as bad per-unit as a larger one.
	assert.LessOrEqual(t, CalculateCVaR(returns, 0.05), CalculateCVaR(returns, 0.10))
	assert.LessOrEqual(t, CalculateCVaR(returns, 0.10), CalculateCVaR(returns, 0.25))
}

func TestCalculateCVaR_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, CalculateCVaR(nil, 0.05))
	assert.Equal(t, -0.02, CalculateCVaR([]float64{-0.02}, 0.05))
}

func TestScenarioCVaR(t *testing.T) {
	weights := []float64{0.5, 0.5}
	scenarios := [][]float64{
		{-0.10, -0.06}, // portfolio -0.08
		{0.02, 0.04},   // portfolio 0.03
		{0.01, -0.01},  // portfolio 0.00
		{-0.04, 0.02},  // portfolio -0.01
	}

	// 25% tail of 4 scenarios = worst 1 scenario.
	assert.InDelta(t, -0.08, ScenarioCVaR(weights, scenarios, 0.25), 1e-12)
}
