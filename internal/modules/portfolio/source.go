package portfolio

import (
	"context"

	"github.com/aristath/folio/internal/modules/holdings"
)

// repositoryHoldingsSource adapts the holdings repository to the
// orchestrator's read-only view.
type repositoryHoldingsSource struct {
	repo *holdings.Repository
}

// NewRepositoryHoldingsSource wraps a holdings repository as a
// HoldingsSource.
func NewRepositoryHoldingsSource(repo *holdings.Repository) HoldingsSource {
	return &repositoryHoldingsSource{repo: repo}
}

func (s *repositoryHoldingsSource) List(ctx context.Context) ([]holdings.Holding, error) {
	return s.repo.List(ctx)
}

func (s *repositoryHoldingsSource) UpdatePrice(ctx context.Context, symbol string, price float64) error {
	return s.repo.UpdatePrice(ctx, symbol, price)
}
