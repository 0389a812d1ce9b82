package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/folio/internal/database"
)

// TTL constants for cached market data.
const (
	// TTLHistory - historical daily series; yesterday's bars don't move, but
	// the newest bar does, so refresh hourly by default.
	TTLHistory = time.Hour
)

// HistoryCache is a SQLite-backed TTL cache for historical price series.
// Entries are stored as msgpack blobs keyed by (symbol, period, interval)
// with an explicit expires_at; expired rows are swept by the eviction job.
type HistoryCache struct {
	db  *database.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewHistoryCache creates the cache and its table if missing.
func NewHistoryCache(db *database.DB, ttl time.Duration, log zerolog.Logger) (*HistoryCache, error) {
	if ttl <= 0 {
		ttl = TTLHistory
	}

	schema := `
		CREATE TABLE IF NOT EXISTS price_history_cache (
			symbol     TEXT NOT NULL,
			period     TEXT NOT NULL,
			interval   TEXT NOT NULL,
			payload    BLOB NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			PRIMARY KEY (symbol, period, interval)
		);
		CREATE INDEX IF NOT EXISTS idx_price_history_cache_expires
			ON price_history_cache(expires_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create price history cache table: %w", err)
	}

	return &HistoryCache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "history_cache").Logger(),
	}, nil
}

// Get returns the cached series for the key, or ok=false when the entry is
// missing or expired.
func (c *HistoryCache) Get(ctx context.Context, symbol, period, interval string) (PriceSeries, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, `
		SELECT payload FROM price_history_cache
		WHERE symbol = ? AND period = ? AND interval = ? AND expires_at > ?`,
		symbol, period, interval, time.Now().UTC(),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return PriceSeries{}, false, nil
	}
	if err != nil {
		return PriceSeries{}, false, fmt.Errorf("failed to query history cache: %w", err)
	}

	var series PriceSeries
	if err := msgpack.Unmarshal(payload, &series); err != nil {
		// Corrupt entry: treat as a miss, it will be overwritten.
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to decode cached series, treating as miss")
		return PriceSeries{}, false, nil
	}

	return series, true, nil
}

// Put stores a series under the key with the cache's TTL.
func (c *HistoryCache) Put(ctx context.Context, series PriceSeries, period, interval string) error {
	payload, err := msgpack.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to encode series: %w", err)
	}

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO price_history_cache (symbol, period, interval, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, period, interval) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		series.Symbol, period, interval, payload, now, now.Add(c.ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to store series in cache: %w", err)
	}
	return nil
}

// PruneExpired deletes expired entries and returns how many were removed.
func (c *HistoryCache) PruneExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM price_history_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history cache: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		c.log.Debug().Int64("removed", n).Msg("Pruned expired cache entries")
	}
	return n, nil
}

// CachedProvider wraps a HistoryProvider with the TTL cache.
type CachedProvider struct {
	provider HistoryProvider
	cache    *HistoryCache
	log      zerolog.Logger
}

// NewCachedProvider creates a read-through caching provider.
func NewCachedProvider(provider HistoryProvider, cache *HistoryCache, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		log:      log.With().Str("component", "cached_provider").Logger(),
	}
}

// GetHistoricalPrices serves from cache when fresh, otherwise fetches and
// stores. Cache write failures are logged, not fatal.
func (p *CachedProvider) GetHistoricalPrices(ctx context.Context, symbol, period, interval string) (PriceSeries, error) {
	if series, ok, err := p.cache.Get(ctx, symbol, period, interval); err == nil && ok {
		return series, nil
	} else if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Cache read failed, fetching directly")
	}

	series, err := p.provider.GetHistoricalPrices(ctx, symbol, period, interval)
	if err != nil {
		return series, err
	}

	if len(series.Prices) > 0 {
		if err := p.cache.Put(ctx, series, period, interval); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache series")
		}
	}

	return series, nil
}
