package app

import (
	"context"
	"fmt"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	filecache "github.com/JakeFAU/athlete-pipeline/internal/cache/file"
	sqlitecache "github.com/JakeFAU/athlete-pipeline/internal/cache/sqlite"
	"github.com/JakeFAU/athlete-pipeline/internal/clock"
	"github.com/JakeFAU/athlete-pipeline/internal/config"
	"github.com/JakeFAU/athlete-pipeline/internal/extract"
	collyfetcher "github.com/JakeFAU/athlete-pipeline/internal/fetcher/colly"
	"github.com/JakeFAU/athlete-pipeline/internal/id/uuid"
	"github.com/JakeFAU/athlete-pipeline/internal/ingest"
	"github.com/JakeFAU/athlete-pipeline/internal/merge"
	"github.com/JakeFAU/athlete-pipeline/internal/policy/ratelimit"
	"github.com/JakeFAU/athlete-pipeline/internal/publisher/pubsub"
	"github.com/JakeFAU/athlete-pipeline/internal/storage/gcs"
	"github.com/JakeFAU/athlete-pipeline/internal/storage/local"
	"github.com/JakeFAU/athlete-pipeline/internal/storage/postgres"
)

// Build creates every service named by cfg and returns a ready Pipeline. It
// fails fast if a configured service cannot be initialized; the caller must
// Close the Pipeline.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *Pipeline, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	clk := clock.New()

	cache, closeCache, err := buildCache(cfg, clk, logger)
	if err != nil {
		return nil, err
	}
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.Fetcher.MaxRPS, Burst: cfg.Fetcher.Burst})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Fetcher.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, limiter, logger.Named("fetcher"))

	var reporter athlete.FailureReporter
	if cfg.Failures.Path != "" {
		if reporter, err = ingest.NewFileReporter(cfg.Failures.Path); err != nil {
			return nil, err
		}
	}

	delay := cfg.FetchDelay()
	if delay == 0 {
		delay = -1
	}
	orchestrator, err := ingest.New(ingest.Config{CacheTTL: cfg.CacheTTL(), Delay: delay}, ingest.Dependencies{
		Cache:     cache,
		Fetcher:   fetcher,
		Extractor: extract.New(),
		Reporter:  reporter,
		Clock:     clk,
	}, logger.Named("ingest"))
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	processor, err := merge.New(cfg.Merge, clk)
	if err != nil {
		return nil, fmt.Errorf("build processor: %w", err)
	}

	sink, closeSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeSink != nil {
		closers = append(closers, closeSink)
	}

	svc := Services{
		Orchestrator: orchestrator,
		Processor:    processor,
		Sink:         sink,
		IDs:          uuid.New(),
		Clock:        clk,
	}

	if cfg.DB.DSN != "" {
		logger.Info("Connecting to PostgreSQL...")
		store, err := postgres.NewRunStore(ctx, postgres.Config{DSN: cfg.DB.DSN, Table: cfg.DB.Table})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize run history: %w", err)
		}
		closers = append(closers, func() error { store.Close(); return nil })
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		svc.Recorder = store
	}

	if cfg.PubSub.TopicName != "" {
		logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", cfg.PubSub.TopicName))
		client, err := pubsub.NewClient(ctx, pubsub.Config{ProjectID: cfg.PubSub.ProjectID, TopicName: cfg.PubSub.TopicName})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize pubsub: %w", err)
		}
		pub := pubsub.New(client, cfg.PubSub.TopicName)
		closers = append(closers, pub.Close)
		svc.Publisher = pub
	}

	p, err := New(svc, Options{
		BaselinePath:    cfg.BaselinePath(),
		Topic:           cfg.PubSub.TopicName,
		MetricsTextfile: cfg.Metrics.Textfile,
	}, logger)
	if err != nil {
		return nil, err
	}
	p.closers = closers
	return p, nil
}

func buildCache(cfg config.Config, clk athlete.Clock, logger *zap.Logger) (athlete.CacheStore, func() error, error) {
	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		logger.Info("Using SQLite cache", zap.String("path", cfg.Cache.Path))
		store, err := sqlitecache.New(sqlitecache.Config{Path: cfg.Cache.Path}, clk, logger.Named("cache"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		return store, store.Close, nil
	case config.BackendFile:
		logger.Info("Using JSON file cache", zap.String("path", cfg.Cache.Path))
		store, err := filecache.New(filecache.Config{Path: cfg.Cache.Path}, clk, logger.Named("cache"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (athlete.DocumentSink, func() error, error) {
	switch cfg.Output.Backend {
	case config.BackendGCS:
		logger.Info("Using GCS output", zap.String("bucket", cfg.Output.GCSBucket), zap.String("object", cfg.Output.GCSObject))
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		sink, err := gcs.New(client, gcs.Config{Bucket: cfg.Output.GCSBucket, Object: cfg.Output.GCSObject})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to initialize output: %w", err)
		}
		return sink, client.Close, nil
	case config.BackendFile:
		logger.Info("Using local output", zap.String("path", cfg.Output.Path))
		sink, err := local.New(local.Config{Path: cfg.Output.Path})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize output: %w", err)
		}
		return sink, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown output backend: %s", cfg.Output.Backend)
	}
}
