package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/traffic-dashboard/internal/adapter/backend"
	httpadapter "github.com/couchcryptid/traffic-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/traffic-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/traffic-dashboard/internal/config"
	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/generator"
	"github.com/couchcryptid/traffic-dashboard/internal/observability"
	"github.com/couchcryptid/traffic-dashboard/internal/refresh"
	"github.com/couchcryptid/traffic-dashboard/internal/settings"
	"github.com/couchcryptid/traffic-dashboard/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	dash := settings.Default()
	if cfg.SettingsFile != "" {
		if dash, err = settings.Load(cfg.SettingsFile); err != nil {
			logger.Error("failed to load settings", "path", cfg.SettingsFile, "error", err)
			os.Exit(1)
		}
		logger.Info("dashboard settings loaded", "path", cfg.SettingsFile, "system", dash.General.SystemName)
	}

	interval := cfg.RefreshInterval
	if cfg.SettingsFile != "" {
		interval = dash.RefreshEvery()
	}

	obsSource, fcSource := dataSources(cfg, logger, metrics)

	clock := domain.Clock()
	st := store.New(cfg.InitialFilter, clock)
	ctrl := refresh.New(st, obsSource, fcSource, refresh.Config{
		FetchTimeout: cfg.FetchTimeout,
		Interval:     interval,
	}, clock, logger, metrics)

	summaries := httpadapter.NewSummaryCache(dash.SummaryOptions(), cfg.SummaryCacheSize, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, st, ctrl, summaries, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start snapshot publisher.
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaSnapshotTopic, summaries, logger, metrics)
		go func() {
			if err := publisher.Run(ctx, st); err != nil {
				logger.Error("snapshot publisher error", "error", err)
			}
		}()
		logger.Info("kafka snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic, "brokers", cfg.KafkaBrokers)
	}

	// Start refresh loop.
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			logger.Error("refresh controller error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := ctrl.Close(); err != nil {
		logger.Error("refresh controller close error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// dataSources picks the remote backend when BACKEND_URL is set and the
// record generator otherwise.
func dataSources(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (refresh.ObservationSource, refresh.ForecastSource) {
	if cfg.BackendURL != "" {
		client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, cfg.BackendMaxRetry, cfg.ForecastHorizon, logger, metrics)
		logger.Info("using traffic backend", "url", cfg.BackendURL, "timeout", cfg.BackendTimeout)
		return client, client
	}

	gen := generator.New(cfg.GeneratorSeed, nil)
	src := generator.NewSource(gen, nil, generator.SourceConfig{
		ObservationCount:   cfg.ObservationCount,
		ForecastHorizon:    cfg.ForecastHorizon,
		ObservationLatency: cfg.ObservationLatency,
		ForecastLatency:    cfg.ForecastLatency,
		Model:              cfg.ForecastModel,
	})
	logger.Info("using record generator", "seed", cfg.GeneratorSeed, "forecast_model", cfg.ForecastModel)
	return src, src
}
