package marketdata

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

func testCacheDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSeries(symbol string, n int) PriceSeries {
	prices := make([]HistoricalPrice, n)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range prices {
		prices[i] = HistoricalPrice{
			Date:   base.AddDate(0, 0, i),
			Open:   100 + float64(i),
			High:   101 + float64(i),
			Low:    99 + float64(i),
			Close:  100.5 + float64(i),
			Volume: 1000,
		}
	}
	return PriceSeries{Symbol: symbol, Prices: prices}
}

func TestHistoryCachePutGet(t *testing.T) {
	db := testCacheDB(t)
	cache, err := NewHistoryCache(db, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	series := sampleSeries("AAPL", 5)

	require.NoError(t, cache.Put(ctx, series, "2y", "1d"))

	got, ok, err := cache.Get(ctx, "AAPL", "2y", "1d")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AAPL", got.Symbol)
	require.Len(t, got.Prices, 5)
	assert.InDelta(t, 100.5, got.Prices[0].Close, 1e-9)
}

func TestHistoryCacheMiss(t *testing.T) {
	db := testCacheDB(t)
	cache, err := NewHistoryCache(db, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	_, ok, err := cache.Get(context.Background(), "MSFT", "2y", "1d")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoryCacheExpiry(t *testing.T) {
	db := testCacheDB(t)
	cache, err := NewHistoryCache(db, time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, sampleSeries("AAPL", 3), "1y", "1d"))

	time.Sleep(5 * time.Millisecond)

	_, ok, err := cache.Get(ctx, "AAPL", "1y", "1d")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must be a miss")

	removed, err := cache.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestHistoryCacheUpsert(t *testing.T) {
	db := testCacheDB(t)
	cache, err := NewHistoryCache(db, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, sampleSeries("AAPL", 3), "2y", "1d"))
	require.NoError(t, cache.Put(ctx, sampleSeries("AAPL", 7), "2y", "1d"))

	got, ok, err := cache.Get(ctx, "AAPL", "2y", "1d")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Prices, 7)
}

type stubProvider struct {
	series PriceSeries
	calls  int
}

func (s *stubProvider) GetHistoricalPrices(_ context.Context, symbol, _, _ string) (PriceSeries, error) {
	s.calls++
	return s.series, nil
}

func TestCachedProviderReadThrough(t *testing.T) {
	db := testCacheDB(t)
	cache, err := NewHistoryCache(db, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	stub := &stubProvider{series: sampleSeries("GOOG", 4)}
	provider := NewCachedProvider(stub, cache, zerolog.Nop())

	ctx := context.Background()
	first, err := provider.GetHistoricalPrices(ctx, "GOOG", "2y", "1d")
	require.NoError(t, err)
	assert.Len(t, first.Prices, 4)
	assert.Equal(t, 1, stub.calls)

	second, err := provider.GetHistoricalPrices(ctx, "GOOG", "2y", "1d")
	require.NoError(t, err)
	assert.Len(t, second.Prices, 4)
	assert.Equal(t, 1, stub.calls, "second read must come from cache")
}
