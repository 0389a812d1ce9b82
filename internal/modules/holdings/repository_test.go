package holdings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/database"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, zerolog.Nop())
	require.NoError(t, err)
	return repo
}

func TestCreateAndGet(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h := &Holding{Symbol: "aapl", Quantity: 10, AverageCost: 150, Category: "Tech"}
	require.NoError(t, repo.Create(ctx, h))
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "AAPL", h.Symbol, "symbol is normalized to upper case")

	got, err := repo.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)
	assert.InDelta(t, 10.0, got.Quantity, 1e-9)
	assert.Nil(t, got.CurrentPrice)
}

func TestCreateValidation(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	err := repo.Create(ctx, &Holding{Symbol: "", Quantity: 1, AverageCost: 1})
	assert.ErrorIs(t, err, ErrEmptySymbol)

	err = repo.Create(ctx, &Holding{Symbol: "AAPL", Quantity: 0, AverageCost: 1})
	assert.ErrorIs(t, err, ErrNonPositiveQty)

	err = repo.Create(ctx, &Holding{Symbol: "AAPL", Quantity: 1, AverageCost: -1})
	assert.ErrorIs(t, err, ErrNegativeCost)
}

func TestUpdatePrice(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h := &Holding{Symbol: "MSFT", Quantity: 5, AverageCost: 300, Category: "Tech"}
	require.NoError(t, repo.Create(ctx, h))

	require.NoError(t, repo.UpdatePrice(ctx, "MSFT", 410.5))

	got, err := repo.GetBySymbol(ctx, "MSFT")
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice)
	assert.InDelta(t, 410.5, *got.CurrentPrice, 1e-9)
	assert.InDelta(t, 5*410.5, got.MarketValue(), 1e-9)
	assert.InDelta(t, 5*(410.5-300), got.UnrealizedGain(), 1e-9)
}

func TestDelete(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h := &Holding{Symbol: "VTI", Quantity: 2, AverageCost: 220}
	require.NoError(t, repo.Create(ctx, h))
	require.NoError(t, repo.Delete(ctx, h.ID))

	_, err := repo.GetByID(ctx, h.ID)
	assert.ErrorIs(t, err, ErrHoldingNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, h.ID), ErrHoldingNotFound)
}

func TestMarketValueFallsBackToCost(t *testing.T) {
	h := Holding{Symbol: "BND", Quantity: 4, AverageCost: 75}
	assert.InDelta(t, 300.0, h.MarketValue(), 1e-9)
}
