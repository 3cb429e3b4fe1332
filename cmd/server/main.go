// Package main provides the entry point for the research graph HTTP server.
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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/research-graph/internal/config"
	"github.com/helixir/research-graph/internal/database"
	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/observability"
	"github.com/helixir/research-graph/internal/query"
	"github.com/helixir/research-graph/internal/repository"
	"github.com/helixir/research-graph/internal/serialize"
	httpserver "github.com/helixir/research-graph/internal/server/http"
	"github.com/helixir/research-graph/internal/store"
	"github.com/helixir/research-graph/migrations"
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
	logger.Info().Str("graph_source", cfg.Graph.Source).Msg("research-graph server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Load the graph once; it is read-only from here on.
	var (
		graph  *store.Graph
		health httpserver.HealthChecker
	)
	switch cfg.Graph.Source {
	case config.SourcePostgres:
		db, err := database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		graph, err = loadFromPostgres(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		health = db
	default:
		start := time.Now()
		graph, err = serialize.LoadFile(cfg.Graph.Path)
		if err != nil {
			return fmt.Errorf("load graph: %w", err)
		}
		logger.Info().
			Str("path", cfg.Graph.Path).
			Int("triples", graph.Len()).
			Dur("duration", time.Since(start)).
			Msg("graph loaded from file")
	}
	metrics.RecordGraphLoad(cfg.Graph.Source, graph.Len())

	queries := query.NewService(graph, query.Options{
		PageSize:    cfg.Query.PageSize,
		SearchLimit: cfg.Query.SearchLimit,
		Timeout:     cfg.Query.Timeout,
		MaxRows:     cfg.Query.MaxRows,
	}, logger, metrics)

	stats := queries.Statistics()
	logger.Info().
		Int("papers", stats.Papers).
		Int("authors", stats.Authors).
		Int("organizations", stats.Organizations).
		Int("triples", stats.Triples).
		Msg("graph ready")

	httpCfg := httpserver.Config{
		Address:      cfg.Server.HTTPAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}
	if cfg.RateLimit.Enabled {
		httpCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		httpCfg.Burst = cfg.RateLimit.Burst
	}
	httpSrv := httpserver.NewServer(httpCfg, queries, health, metrics, logger)

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

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("research-graph is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down research-graph")

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

	logger.Info().Msg("research-graph shutdown complete")
	return nil
}

// loadFromPostgres rebuilds the graph of the configured run, or of the most
// recent run when none is configured.
func loadFromPostgres(ctx context.Context, cfg *config.Config, db *database.DB, logger zerolog.Logger) (*store.Graph, error) {
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewEmbeddedMigrator(db, migrations.FS, ".", logger)
		if err != nil {
			return nil, fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()
		if err := migrator.Up(); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	repo := repository.NewPgGraphRepository(db)

	var (
		run *domain.ConversionRun
		err error
	)
	if cfg.Graph.RunID == "" {
		run, err = repo.LatestRun(ctx)
	} else {
		id, parseErr := uuid.Parse(cfg.Graph.RunID)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid graph run_id %q: %w", cfg.Graph.RunID, parseErr)
		}
		run, err = repo.GetRun(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find conversion run: %w", err)
	}

	start := time.Now()
	graph, err := repo.LoadRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	logger.Info().
		Str("run_id", run.ID.String()).
		Str("input", run.InputPath).
		Time("finished_at", run.FinishedAt).
		Int("triples", graph.Len()).
		Dur("duration", time.Since(start)).
		Msg("graph loaded from database")
	return graph, nil
}
