// Package main is the entry point for the district operations intelligence
// service. It serves derived analytics over monthly identity-enrolment
// records: workload forecasts, migration classification and data-quality
// anomaly detection.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uidai-ops/opsintel/internal/config"
	"github.com/uidai-ops/opsintel/internal/ingest"
	"github.com/uidai-ops/opsintel/internal/scheduler"
	"github.com/uidai-ops/opsintel/internal/server"
	"github.com/uidai-ops/opsintel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting opsintel")

	loader := ingest.NewLoader(cfg, log)
	store := ingest.NewStore(loader, log)

	// Warm the snapshot in the background so the first request does not pay
	// the load cost. Requests arriving earlier block on the same load.
	go func() {
		if _, err := store.Snapshot(); err != nil {
			log.Error().Err(err).Msg("Initial dataset load failed")
		}
	}()

	sched := scheduler.New(log)
	if cfg.ReloadSchedule != "" {
		reloadJob := scheduler.NewDatasetReloadJob(store, log)
		if err := sched.AddJob(cfg.ReloadSchedule, reloadJob); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.ReloadSchedule).Msg("Failed to register reload job")
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:     log,
		Cfg:     cfg,
		Store:   store,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
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
			log.Fatal().Err(err).Msg("Server error")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	sched.Stop()

	log.Info().Msg("Shutdown complete")
}
