package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/modules/holdings"
)

func floatPtr(v float64) *float64 { return &v }

func TestCurrentAllocationUsesQuoteWithCostFallback(t *testing.T) {
	items := []holdings.Holding{
		{Symbol: "AAPL", Quantity: 100, AverageCost: 150, Category: "Tech", CurrentPrice: floatPtr(200)},
		{Symbol: "BND", Quantity: 100, AverageCost: 80, Category: "Bonds"}, // no quote
	}

	entries, total := currentAllocation(items)
	require.Len(t, entries, 2)
	assert.InDelta(t, 28000, total, 1e-9) // 100*200 + 100*80

	assert.Equal(t, "AAPL", entries[0].Symbol)
	assert.InDelta(t, 20000, entries[0].Value, 1e-9)
	assert.InDelta(t, 20000.0/28000.0, entries[0].Percent, 1e-9)
	assert.InDelta(t, 15000, entries[0].CostBasis, 1e-9)
	assert.InDelta(t, 5000, entries[0].UnrealizedGain, 1e-9)

	// no quote: valued at cost, so no gain either
	assert.InDelta(t, 8000, entries[1].Value, 1e-9)
	assert.InDelta(t, 0, entries[1].UnrealizedGain, 1e-9)
}

func TestAllocationByCategory(t *testing.T) {
	entries := []AllocationEntry{
		{Symbol: "AAPL", Category: "Tech", Value: 20000, Percent: 0.5},
		{Symbol: "MSFT", Category: "Tech", Value: 12000, Percent: 0.3},
		{Symbol: "BND", Category: "", Value: 8000, Percent: 0.2},
	}

	byCat := allocationByCategory(entries)
	require.Len(t, byCat, 2)

	assert.Equal(t, "Tech", byCat[0].Category)
	assert.InDelta(t, 32000, byCat[0].Value, 1e-9)
	assert.InDelta(t, 0.8, byCat[0].Percent, 1e-9)
	assert.Equal(t, "Uncategorized", byCat[1].Category)
}

func TestOptimizedAllocationDeltas(t *testing.T) {
	current := []AllocationEntry{
		{Symbol: "AAPL", Category: "Tech", Value: 20000, Percent: 0.4},
		{Symbol: "BND", Category: "Bonds", Value: 30000, Percent: 0.6},
	}

	optimized := optimizedAllocation([]string{"AAPL", "BND"}, []float64{0.55, 0.45}, current)
	require.Len(t, optimized, 2)

	assert.InDelta(t, 0.15, optimized[0].DeltaPercent, 1e-9)
	assert.InDelta(t, -0.15, optimized[1].DeltaPercent, 1e-9)
	assert.Equal(t, "Tech", optimized[0].Category)
}

func TestCurrentAllocationEmptyPortfolio(t *testing.T) {
	entries, total := currentAllocation(nil)
	assert.Empty(t, entries)
	assert.Equal(t, 0.0, total)
}
