package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/issuesense/analyze"
	"github.com/c360studio/issuesense/config"
	"github.com/c360studio/issuesense/enrich"
	"github.com/c360studio/issuesense/llm"
	"github.com/c360studio/issuesense/metrics"
	"github.com/c360studio/issuesense/server"
	"github.com/c360studio/issuesense/tracker"
)

// shutdownGrace bounds draining of in-flight requests on termination.
const shutdownGrace = 30 * time.Second

func serveCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath, *logLevel)
		},
	}
}

func runServe(configPath, logLevel string) error {
	logger := setupLogging(logLevel)

	loader := config.NewLoader(logger)
	cfg, err := loader.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m := metrics.New()

	mux, err := buildMux(cfg, m, logger)
	if err != nil {
		return err
	}

	// The live mux is swapped atomically on config reload so in-flight
	// requests finish against the pipeline they started on.
	var live atomic.Pointer[http.ServeMux]
	live.Store(mux)
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		live.Load().ServeHTTP(w, r)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, logger, func(next *config.Config) {
			nextMux, err := buildMux(next, m, logger)
			if err != nil {
				logger.Warn("Config reload rejected", "error", err)
				return
			}
			live.Store(nextMux)
			logger.Info("Pipeline rebuilt from updated config")
		})
		if err != nil {
			logger.Warn("Config watching disabled", "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	srv := server.NewServer(cfg.Server.Host, cfg.Server.Port, root)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildMux wires the full pipeline for one config and mounts it on a
// fresh mux.
func buildMux(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*http.ServeMux, error) {
	analyzer, err := buildAnalyzer(cfg, m, logger)
	if err != nil {
		return nil, err
	}

	handler := server.NewHandler(analyzer,
		server.WithLogger(logger),
		server.WithMetrics(m),
		server.WithVersion(Version),
	)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux, nil
}

// buildAnalyzer wires gateway, aggregator, and completion client.
func buildAnalyzer(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*analyze.Analyzer, error) {
	gateway, err := tracker.NewGateway(cfg.Tracker.Token, cfg.Tracker.BaseURL,
		tracker.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create tracker gateway: %w", err)
	}

	aggregator := enrich.NewAggregator(gateway,
		enrich.WithLogger(logger),
		enrich.WithIgnoreGlobs(cfg.Enrich.IgnoreGlobs),
		enrich.WithMetrics(m),
	)

	clientOpts := []llm.ClientOption{
		llm.WithLogger(logger),
		llm.WithTemperature(cfg.Model.Temperature),
	}
	if cfg.Model.Timeout > 0 {
		clientOpts = append(clientOpts, llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}))
	}
	client, err := llm.NewClient(cfg.Model.Provider, cfg.Model.Endpoint, cfg.Model.Name, cfg.Model.APIKey, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	return analyze.NewAnalyzer(aggregator, client,
		analyze.WithLogger(logger),
		analyze.WithMetrics(m),
	), nil
}
