// Folio portfolio tracking and optimization service.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/modules/estimation"
	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/server"
	"github.com/aristath/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLog, err := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	logger.SetGlobalLogger(appLog)

	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	databases := []*database.DB{portfolioDB, cacheDB}
	for _, db := range databases {
		appLog.Debug().Str("database", db.Name()).Str("path", db.Path()).Msg("Database ready")
	}

	holdingsRepo, err := holdings.NewRepository(portfolioDB, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to initialize holdings repository")
	}

	historyCache, err := marketdata.NewHistoryCache(cacheDB, time.Duration(cfg.QuoteCacheTTLMin)*time.Minute, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to initialize history cache")
	}
	marketClient := marketdata.NewClient(cfg.MarketDataURL, cfg.MarketDataRPS, appLog)
	marketProvider := marketdata.NewCachedProvider(marketClient, historyCache, appLog)

	resultRepo, err := portfolio.NewRepository(portfolioDB, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to initialize portfolio repository")
	}

	estimationCfg := estimation.DefaultConfig()
	estimationCfg.RiskFreeRate = cfg.RiskFreeRate
	estimationCfg.MarketProxy = cfg.MarketProxy
	estimator := estimation.NewEngine(estimationCfg, appLog)
	optimizer := optimization.NewEngine(cfg.RiskFreeRate, appLog)

	holdingsSource := portfolio.NewRepositoryHoldingsSource(holdingsRepo)
	portfolioService := portfolio.NewService(holdingsSource, marketProvider, estimator, optimizer, resultRepo, appLog)

	scheduler := cron.New()
	cleanup := marketdata.NewCleanupJob(historyCache, appLog)
	if err := cleanup.Register(scheduler); err != nil {
		appLog.Fatal().Err(err).Msg("Failed to schedule cache cleanup")
	}
	if _, err := scheduler.AddFunc("@daily", func() {
		for _, db := range databases {
			if err := db.WALCheckpoint("TRUNCATE"); err != nil {
				appLog.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			}
		}
	}); err != nil {
		appLog.Fatal().Err(err).Msg("Failed to schedule WAL checkpoint")
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(server.Config{
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
		HoldingsHandler:  holdings.NewHandler(holdingsRepo, appLog),
		PortfolioHandler: portfolio.NewHandler(portfolioService, resultRepo, holdingsSource, appLog),
		Databases:        databases,
		Log:              appLog,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			appLog.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		appLog.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
