package portfolio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

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

func sampleOutcome(id string) *OptimizationOutcome {
	return &OptimizationOutcome{
		ID:             id,
		Method:         "max_sharpe",
		ExpectedReturn: 0.08,
		TotalValue:     40000,
		CreatedAt:      time.Now().UTC(),
		OptimizedAllocation: []OptimizedEntry{
			{Symbol: "AAPL", Percent: 0.6},
			{Symbol: "BND", Percent: 0.4},
		},
	}
}

func TestSaveWithEventRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	outcome := sampleOutcome("res-1")
	require.NoError(t, repo.SaveWithEvent(ctx, outcome, "portfolio_optimized"))

	got, err := repo.Get(ctx, "res-1")
	require.NoError(t, err)
	assert.Equal(t, "max_sharpe", got.Method)
	require.Len(t, got.OptimizedAllocation, 2)
	assert.InDelta(t, 0.6, got.OptimizedAllocation[0].Percent, 1e-9)

	var events int
	err = repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analytics_events WHERE result_id = ? AND event = ?`,
		"res-1", "portfolio_optimized",
	).Scan(&events)
	require.NoError(t, err)
	assert.Equal(t, 1, events)
}

func TestSaveWithEventAtomicOnDuplicate(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveWithEvent(ctx, sampleOutcome("dup"), "portfolio_optimized"))
	// the second insert violates the primary key; the whole transaction
	// rolls back, so no second event row appears either
	assert.Error(t, repo.SaveWithEvent(ctx, sampleOutcome("dup"), "portfolio_optimized"))

	var events int
	err := repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analytics_events WHERE result_id = ?`, "dup",
	).Scan(&events)
	require.NoError(t, err)
	assert.Equal(t, 1, events)
}

func TestGetUnknownResult(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestListNewestFirst(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	older := sampleOutcome("old")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.SaveWithEvent(ctx, older, "portfolio_optimized"))
	require.NoError(t, repo.SaveWithEvent(ctx, sampleOutcome("new"), "portfolio_optimized"))

	summaries, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "new", summaries[0].ID)
	assert.Equal(t, "old", summaries[1].ID)
}
