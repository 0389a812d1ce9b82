package portfolio

import (
	"math"
	"sort"
)

const (
	// tradeMateriality drops moves worth less than 1% of the portfolio.
	tradeMateriality = 0.01
	// highPriorityDelta marks moves over 5% of the portfolio as HIGH.
	highPriorityDelta = 0.05
)

// buildTradePlan turns allocation deltas into BUY/SELL steps. Only moves
// exceeding the materiality threshold survive; items come back sorted by
// |delta| descending so the biggest rebalance is first.
func buildTradePlan(optimized []OptimizedEntry, current []AllocationEntry, totalValue float64) []TradeItem {
	currentBySymbol := make(map[string]AllocationEntry, len(current))
	for _, e := range current {
		currentBySymbol[e.Symbol] = e
	}

	plan := make([]TradeItem, 0, len(optimized))
	for _, opt := range optimized {
		delta := opt.DeltaPercent
		if math.Abs(delta) <= tradeMateriality {
			continue
		}

		action := ActionBuy
		if delta < 0 {
			action = ActionSell
		}

		priority := PriorityMedium
		if math.Abs(delta) > highPriorityDelta {
			priority = PriorityHigh
		}

		cur := currentBySymbol[opt.Symbol]
		plan = append(plan, TradeItem{
			Symbol:       opt.Symbol,
			Action:       action,
			Amount:       math.Abs(delta) * totalValue,
			CurrentValue: cur.Value,
			TargetValue:  opt.Percent * totalValue,
			Priority:     priority,
			DeltaPercent: delta,
		})
	}

	sort.Slice(plan, func(i, j int) bool {
		return math.Abs(plan[i].DeltaPercent) > math.Abs(plan[j].DeltaPercent)
	})

	return plan
}
