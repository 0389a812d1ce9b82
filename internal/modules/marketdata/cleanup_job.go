package marketdata

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CleanupJob periodically evicts expired entries from the history cache.
type CleanupJob struct {
	cache *HistoryCache
	log   zerolog.Logger
}

// NewCleanupJob creates a cache eviction job.
func NewCleanupJob(cache *HistoryCache, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		cache: cache,
		log:   log.With().Str("component", "cache_cleanup").Logger(),
	}
}

// Register schedules the job on the given cron runner (every 30 minutes).
func (j *CleanupJob) Register(c *cron.Cron) error {
	_, err := c.AddFunc("*/30 * * * *", j.Run)
	return err
}

// Run performs one eviction sweep.
func (j *CleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := j.cache.PruneExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Cache eviction sweep failed")
		return
	}
	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Evicted expired cache entries")
	}
}
