package portfolio

import (
	"sort"

	"github.com/aristath/folio/internal/modules/holdings"
)

// currentAllocation values each holding at its current price (average cost
// when no quote is cached) and expresses it as a share of the total.
func currentAllocation(items []holdings.Holding) ([]AllocationEntry, float64) {
	total := 0.0
	for i := range items {
		total += items[i].MarketValue()
	}

	entries := make([]AllocationEntry, 0, len(items))
	for i := range items {
		value := items[i].MarketValue()
		percent := 0.0
		if total > 0 {
			percent = value / total
		}
		entries = append(entries, AllocationEntry{
			Symbol:         items[i].Symbol,
			Category:       items[i].Category,
			Value:          value,
			Percent:        percent,
			CostBasis:      items[i].CostBasis(),
			UnrealizedGain: items[i].UnrealizedGain(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })
	return entries, total
}

// allocationByCategory rolls per-symbol entries up into category shares.
func allocationByCategory(entries []AllocationEntry) []AllocationEntry {
	byCat := make(map[string]*AllocationEntry)
	var order []string
	for _, e := range entries {
		cat := e.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		if agg, ok := byCat[cat]; ok {
			agg.Value += e.Value
			agg.Percent += e.Percent
		} else {
			byCat[cat] = &AllocationEntry{Category: cat, Value: e.Value, Percent: e.Percent}
			order = append(order, cat)
		}
	}

	sort.Strings(order)
	out := make([]AllocationEntry, 0, len(order))
	for _, cat := range order {
		out = append(out, *byCat[cat])
	}
	return out
}

// optimizedAllocation pairs the solver's weight vector with the current
// allocation to compute per-symbol deltas.
func optimizedAllocation(symbols []string, weights []float64, current []AllocationEntry) []OptimizedEntry {
	currentBySymbol := make(map[string]AllocationEntry, len(current))
	for _, e := range current {
		currentBySymbol[e.Symbol] = e
	}

	out := make([]OptimizedEntry, 0, len(symbols))
	for i, sym := range symbols {
		cur := currentBySymbol[sym]
		out = append(out, OptimizedEntry{
			Symbol:       sym,
			Category:     cur.Category,
			Percent:      weights[i],
			DeltaPercent: weights[i] - cur.Percent,
		})
	}
	return out
}
