// Package main provides the entry point for the reconciliation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bibfuse/reconciliation-service/internal/arbiter"
	"github.com/bibfuse/reconciliation-service/internal/catalog"
	"github.com/bibfuse/reconciliation-service/internal/config"
	"github.com/bibfuse/reconciliation-service/internal/observability"
	"github.com/bibfuse/reconciliation-service/internal/reconcile"
	httpserver "github.com/bibfuse/reconciliation-service/internal/server/http"
	"github.com/bibfuse/reconciliation-service/internal/validate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("reconciliation-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Create the arbiter backend.
	factoryCfg := cfg.Arbiter.ToFactory()
	factoryCfg.Metrics = metrics
	oracle, err := arbiter.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("create arbiter: %w", err)
	}
	logger.Info().
		Str("provider", oracle.Provider()).
		Str("model", oracle.Model()).
		Msg("arbiter initialized")

	// Wire validation, arbitration, and fusion into the batch runner.
	validator := validate.New(cfg.Validation)
	engine := reconcile.NewEngine(oracle, cfg.Reconcile.Priorities, cfg.Reconcile.ArbiterConcurrency, logger)
	runner := reconcile.NewRunner(validator, engine, metrics, logger, cfg.Reconcile.RecordWorkers)

	// Register the union catalogs used by deduplication match runs.
	// Disabled catalogs stay registered so requests naming them get a
	// clear "disabled" answer instead of "unknown".
	registry := catalog.NewRegistry()
	for name, cc := range map[string]config.CatalogConfig{
		"dnb":     cfg.Catalogs.DNB,
		"swb":     cfg.Catalogs.SWB,
		"k10plus": cfg.Catalogs.K10Plus,
	} {
		client := catalog.NewJSONClient(catalog.JSONClientConfig{
			Name:       name,
			BaseURL:    cc.BaseURL,
			Timeout:    cc.Timeout,
			RateLimit:  cc.RateLimit,
			MaxResults: cc.MaxResults,
			APIKey:     cc.APIKey,
			Enabled:    cc.Enabled,
		}).WithMetrics(metrics)
		registry.Register(client)
		logger.Info().
			Str("catalog", name).
			Bool("enabled", cc.Enabled).
			Msg("catalog registered")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		runner,
		registry,
		cfg.Matcher,
		cfg.Catalogs.Default,
		metrics,
		logger,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().
		Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("reconciliation-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down reconciliation-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("reconciliation-service shutdown complete")
	return nil
}
