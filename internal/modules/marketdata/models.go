package marketdata

import "time"

// HistoricalPrice is a single daily OHLCV bar.
type HistoricalPrice struct {
	Date   time.Time `json:"date" msgpack:"date"`
	Open   float64   `json:"open" msgpack:"open"`
	High   float64   `json:"high" msgpack:"high"`
	Low    float64   `json:"low" msgpack:"low"`
	Close  float64   `json:"close" msgpack:"close"`
	Volume int64     `json:"volume" msgpack:"volume"`
}

// PriceSeries is an ordered daily price history for one symbol,
// ascending by date.
type PriceSeries struct {
	Symbol string            `json:"symbol" msgpack:"symbol"`
	Prices []HistoricalPrice `json:"prices" msgpack:"prices"`
}

// Closes returns the series' close prices in date order. Bars whose dates are
// out of order relative to the previous bar are dropped, keeping the strictly
// increasing date invariant. Zero or negative closes are kept here; return
// computation treats them as missing.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, 0, len(s.Prices))
	var lastDate time.Time
	for _, p := range s.Prices {
		if !lastDate.IsZero() && !p.Date.After(lastDate) {
			continue
		}
		closes = append(closes, p.Close)
		lastDate = p.Date
	}
	return closes
}

// Tail returns a copy of the series truncated to the most recent n bars.
func (s PriceSeries) Tail(n int) PriceSeries {
	if n <= 0 || len(s.Prices) <= n {
		return s
	}
	return PriceSeries{
		Symbol: s.Symbol,
		Prices: s.Prices[len(s.Prices)-n:],
	}
}
