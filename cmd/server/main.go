// Package main is the entry point for the strategist service.
// It serves portfolio holdings and dispatches strategy executions to the
// external execution engine.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/strategist/internal/config"
	"github.com/aristath/strategist/internal/di"
	executionhandlers "github.com/aristath/strategist/internal/modules/execution/handlers"
	portfoliohandlers "github.com/aristath/strategist/internal/modules/portfolio/handlers"
	"github.com/aristath/strategist/internal/server"
	"github.com/aristath/strategist/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
		Output: os.Stdout,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting strategist")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Modules: []server.RouteRegistrar{
			portfoliohandlers.NewHandler(container.PortfolioService, log),
			executionhandlers.NewHandler(container.Dispatcher, log),
		},
		Monitor:  container.StatusMonitor,
		Jobs:     container.Scheduler,
		LedgerDB: container.LedgerDB,
	})

	container.Scheduler.Start()

	// Probe once so /health has data before the first scheduled run
	go func() {
		probeCtx, probeCancel := context.WithTimeout(ctx, cfg.Engine.Timeout)
		defer probeCancel()
		if err := container.StatusMonitor.Check(probeCtx); err != nil {
			log.Warn().Err(err).Msg("Execution engine not reachable at startup")
		}
	}()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Strategist started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	container.Scheduler.Stop()

	log.Info().Msg("Strategist stopped")
}
