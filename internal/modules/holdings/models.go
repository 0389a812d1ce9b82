// Package holdings stores the user's portfolio positions.
package holdings

import (
	"errors"
	"strings"
	"time"
)

// Validation errors returned by Holding.Validate.
var (
	ErrEmptySymbol     = errors.New("holding symbol is required")
	ErrNonPositiveQty  = errors.New("holding quantity must be positive")
	ErrNegativeCost    = errors.New("holding average cost cannot be negative")
	ErrHoldingNotFound = errors.New("holding not found")
)

// Holding is a single position in the portfolio. CurrentPrice is nil until a
// quote has been fetched; valuation falls back to AverageCost in that case.
type Holding struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	AverageCost  float64   `json:"average_cost"`
	Category     string    `json:"category"`
	CurrentPrice *float64  `json:"current_price,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the holding's invariants.
func (h *Holding) Validate() error {
	if strings.TrimSpace(h.Symbol) == "" {
		return ErrEmptySymbol
	}
	if h.Quantity <= 0 {
		return ErrNonPositiveQty
	}
	if h.AverageCost < 0 {
		return ErrNegativeCost
	}
	return nil
}

// MarketValue is quantity times the current price, falling back to the
// average cost when no quote is available.
func (h *Holding) MarketValue() float64 {
	price := h.AverageCost
	if h.CurrentPrice != nil {
		price = *h.CurrentPrice
	}
	return h.Quantity * price
}

// CostBasis is quantity times average cost.
func (h *Holding) CostBasis() float64 {
	return h.Quantity * h.AverageCost
}

// UnrealizedGain is market value minus cost basis.
func (h *Holding) UnrealizedGain() float64 {
	return h.MarketValue() - h.CostBasis()
}
