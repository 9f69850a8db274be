package main

import (
	"context"
	"database/sql"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rxtech-lab/argo-eval/internal/cache"
	"github.com/rxtech-lab/argo-eval/internal/config"
	"github.com/rxtech-lab/argo-eval/internal/database"
	"github.com/rxtech-lab/argo-eval/internal/evaluation"
	"github.com/rxtech-lab/argo-eval/internal/ingestion"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/internal/marketdata"
	"github.com/rxtech-lab/argo-eval/internal/strategy"
	"github.com/rxtech-lab/argo-eval/internal/version"
	"go.uber.org/zap"
)

// app holds the wired services of one CLI invocation.
type app struct {
	config     config.Config
	logger     *logger.Logger
	db         *sql.DB
	cache      cache.Store
	metrics    *prometheus.Registry
	evaluation *evaluation.Service
	market     *evaluation.MarketService
}

// newApp loads the configuration and wires every service. progress receives the
// download progress bar of ingestion runs; nil disables it.
func newApp(ctx context.Context, configPath string, progress io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	log.Debug("Starting argo-eval", zap.String("version", version.Version), zap.String("database", cfg.DatabasePath))

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	prices, err := marketdata.NewDuckDBPriceStore(ctx, db, cfg.QueryTimeout, log)
	if err != nil {
		db.Close()

		return nil, err
	}

	store, err := cache.Open(ctx, cfg.CacheOptions(), db, log)
	if err != nil {
		db.Close()

		return nil, err
	}

	strategies, err := strategy.DefaultRegistry()
	if err != nil {
		store.Close()
		db.Close()

		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		//nolint:exhaustruct // third-party struct with many optional fields
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service := evaluation.NewService(strategies, prices, store, store, log,
		evaluation.WithMetrics(evaluation.NewMetrics(registry)),
		evaluation.WithDefaultInvested(cfg.DefaultInvested),
	)

	var ingester evaluation.Ingester

	if cfg.IngestionEnabled() {
		var opts []ingestion.ProviderOption
		if progress != nil {
			opts = append(opts, ingestion.WithProgress(progress))
		}

		provider, err := ingestion.NewProvider(cfg.Provider, cfg.PolygonAPIKey, opts...)
		if err != nil {
			store.Close()
			db.Close()

			return nil, err
		}

		ingester = ingestion.NewIngestor(provider, prices, log)
	} else {
		log.Debug("No polygon API key configured, ingestion disabled", zap.String("provider", string(cfg.Provider)))
	}

	return &app{
		config:     cfg,
		logger:     log,
		db:         db,
		cache:      store,
		metrics:    registry,
		evaluation: service,
		market:     evaluation.NewMarketService(prices, ingester, log),
	}, nil
}

func (a *app) Close() error {
	_ = a.logger.Sync()

	if err := a.cache.Close(); err != nil {
		return err
	}

	return a.db.Close()
}
