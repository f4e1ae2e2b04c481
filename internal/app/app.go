package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foxzi/fundchain/internal/api"
	"github.com/foxzi/fundchain/internal/config"
	"github.com/foxzi/fundchain/internal/events"
	"github.com/foxzi/fundchain/internal/journal"
	"github.com/foxzi/fundchain/internal/metrics"
)

// App is the main application
type App struct {
	config           *config.Config
	services         *Services
	hub              *events.Hub
	apiServer        *api.Server
	cleaner          *journal.Cleaner
	metricsServer    *metrics.Server
	metricsCollector *metrics.Collector
	logger           *slog.Logger
}

// New creates a new application
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	logger := setupLogger(cfg.Logging)

	// Metrics must be global before any component records
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metrics.SetGlobal(m)
	}

	hub := events.NewHub(cfg.API.AllowedOrigins, logger.With("component", "events"))

	services, err := NewServices(ctx, cfg, ServicesOptions{Publisher: hub}, logger)
	if err != nil {
		return nil, err
	}

	// Writes from a previous run can no longer be awaited
	n, err := services.Journal.AbandonPending(ctx)
	if err != nil {
		logger.Warn("failed to abandon pending journal entries", "error", err)
	} else if n > 0 {
		logger.Info("abandoned pending journal entries", "count", n)
	}

	cleaner := journal.NewCleaner(services.Journal, journal.CleanerConfig{
		MaxAge:   cfg.Storage.Retention.MaxAge,
		Interval: cfg.Storage.Retention.CleanupInterval,
	}, logger.With("component", "cleaner"))

	apiServer := api.NewServer(api.ServerOptions{
		Orchestrator: services.Orchestrator,
		Sessions:     services.Sessions,
		Journal:      services.Journal,
		Events:       hub,
		Config:       &cfg.API,
		Version:      version,
		Logger:       logger.With("component", "api"),
	})

	a := &App{
		config:    cfg,
		services:  services,
		hub:       hub,
		apiServer: apiServer,
		cleaner:   cleaner,
		logger:    logger,
	}

	if m != nil {
		a.metricsServer = metrics.NewServer(m,
			cfg.Metrics.ListenAddr,
			cfg.Metrics.Path,
			cfg.Metrics.AllowedIPs,
			logger.With("component", "metrics"),
		)
		a.metricsCollector = metrics.NewCollector(m, journalStats{services.Journal}, cfg.Storage.Path, 0)
	}

	return a, nil
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting fundchain",
		"rpc_url", a.config.Ledger.RPCURL,
		"contract", a.config.ContractAddress().Hex(),
		"chain_id", a.services.ChainID,
		"api_addr", a.config.API.ListenAddr,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.hub.Start(ctx)
	a.cleaner.Start(ctx)

	errCh := make(chan error, 2)

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		a.metricsCollector.Start(ctx)
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// In-flight writes are abandoned when their requests are cancelled
	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
		a.metricsCollector.Stop()
	}

	a.hub.Stop()
	a.cleaner.Stop()

	if err := a.services.Close(); err != nil {
		a.logger.Error("services close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// journalStats adapts the journal to the metrics collector
type journalStats struct {
	j *journal.BoltStorage
}

func (s journalStats) JournalStats(ctx context.Context) (*metrics.JournalStats, error) {
	stats, err := s.j.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &metrics.JournalStats{
		Submitted: stats.Submitted,
		Settled:   stats.Settled,
		Reverted:  stats.Reverted,
		Rejected:  stats.Rejected,
		Abandoned: stats.Abandoned,
	}, nil
}
