// Package app is the composition root shared by the server and the CLI. It wires
// concrete adapters behind ports according to the loaded configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"fleet-analytics-service/internal/adapters/artifacts"
	"fleet-analytics-service/internal/adapters/cache"
	"fleet-analytics-service/internal/adapters/events"
	"fleet-analytics-service/internal/adapters/export"
	"fleet-analytics-service/internal/adapters/repositories"
	"fleet-analytics-service/internal/config"
	"fleet-analytics-service/internal/platform/db"
	"fleet-analytics-service/internal/ports"
	"fleet-analytics-service/internal/services"
)

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *sql.DB
	Repo      *repositories.SqlRepository
	Predictor *services.Predictor
	Optimizer *services.RouteOptimizer
	// Nil unless model.export_path is set.
	Export ports.DatasetExporter

	closers []func() error
}

// New opens the database, ensures the schema exists and builds the services.
// Redis and Kafka are only used when their addresses are configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := db.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, DB: conn}
	a.closers = append(a.closers, conn.Close)

	if err := repositories.InitSchema(conn); err != nil {
		a.Close()
		return nil, fmt.Errorf("app: %w", err)
	}
	a.Repo = repositories.NewSqlRepository(conn, repositories.DialectFor(cfg.Database.Driver))

	store, err := artifactStore(ctx, cfg.Model)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: %w", err)
	}
	a.Predictor = services.NewPredictor(predictorConfig(cfg.Model), store, logger)
	if a.Predictor.Load(ctx) {
		logger.Info("model loaded", "location", store.Location(), "kind", a.Predictor.Info().Kind)
	} else {
		logger.Info("no usable model, training required", "location", store.Location())
	}

	if cfg.Model.ExportPath != "" {
		a.Export = export.NewParquetExporter(cfg.Model.ExportPath)
	}

	opts := []services.Option{services.WithLogger(logger)}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		a.closers = append(a.closers, client.Close)
		opts = append(opts, services.WithSummaryCache(cache.NewRedisSummaryCache(client, cfg.Redis.SummaryTTL)))
	}
	if cfg.Kafka.Brokers != "" {
		pub, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, services.WithEventPublisher(pub))
	} else {
		opts = append(opts, services.WithEventPublisher(events.LogPublisher{Logger: logger}))
	}

	a.Optimizer = services.NewRouteOptimizer(a.Repo, services.OptimizerConfig{
		MaxPerVehicle:           cfg.Optimizer.MaxPerVehicle,
		MinutesSavedPerDelivery: cfg.Optimizer.MinutesSavedPerDelivery,
	}, opts...)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func artifactStore(ctx context.Context, m config.ModelConfig) (ports.ArtifactStore, error) {
	if m.S3Bucket == "" {
		return artifacts.NewFileStore(m.Path), nil
	}
	return artifacts.NewS3Store(ctx, m.S3Region, m.S3Bucket, m.S3Key)
}

func predictorConfig(m config.ModelConfig) services.PredictorConfig {
	pc := services.DefaultPredictorConfig()
	pc.EnableRegression = m.EnableRegression
	pc.EnableEnsemble = m.EnableEnsemble
	pc.WeakR2 = m.WeakR2
	pc.ConfidenceMargin = m.ConfidenceMargin
	return pc
}
