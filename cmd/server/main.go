// Package main is the entry point for the tax engine server. It resolves
// marginal tax-rate schedules from official sources, caches them in memory
// and on disk, and serves progressive tax calculations over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/PeterM45/tax-engine/internal/cache"
	"github.com/PeterM45/tax-engine/internal/clients/cra"
	"github.com/PeterM45/tax-engine/internal/clients/irs"
	"github.com/PeterM45/tax-engine/internal/config"
	"github.com/PeterM45/tax-engine/internal/database"
	"github.com/PeterM45/tax-engine/internal/domain"
	"github.com/PeterM45/tax-engine/internal/scheduledata"
	"github.com/PeterM45/tax-engine/internal/scheduler"
	"github.com/PeterM45/tax-engine/internal/server"
	"github.com/PeterM45/tax-engine/internal/services"
	"github.com/PeterM45/tax-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting tax engine")

	// Persistent schedule cache
	cacheDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "schedules.db"),
		Name: "schedules",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open schedule cache database")
	}
	defer cacheDB.Close()

	if err := scheduledata.EnsureSchema(cacheDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schedule cache schema")
	}
	scheduleRepo := scheduledata.NewRepository(cacheDB.Conn())

	// Background cleanup of expired persisted schedules
	jobs := scheduler.New(log)
	if err := jobs.AddJob(cfg.CleanupSchedule, scheduledata.NewCleanupJob(scheduleRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}
	jobs.Start()
	defer jobs.Stop()

	// Rate sources in selection order - first supporting source wins
	sources := []domain.RateSource{
		irs.NewClient(log),
		cra.NewClient(log),
	}

	resolver := services.NewRateResolverService(
		cache.NewMemoryCache(cfg.CacheTTL),
		scheduleRepo,
		sources,
		cfg.PersistTTL,
		log,
	)

	srv := server.New(server.Config{
		Log:      log,
		Port:     cfg.Port,
		DevMode:  cfg.DevMode,
		Resolver: resolver,
		CacheDB:  cacheDB,
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
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Tax engine stopped")
}
