// Package ingest drives the fetch-or-cache decision for each source URL and
// collects the raw athlete records of a run.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/clock"
	"github.com/JakeFAU/athlete-pipeline/internal/metrics"
)

// DefaultDelay is the pause imposed after every live fetch.
const DefaultDelay = time.Second

// Config holds the orchestrator settings.
type Config struct {
	// CacheTTL is the staleness threshold; zero means athlete.DefaultCacheTTL.
	CacheTTL time.Duration
	// Delay is the pause after each successful network fetch. Zero means
	// DefaultDelay; negative disables it.
	Delay time.Duration
}

// Pauser blocks between live fetches.
type Pauser interface {
	Pause(ctx context.Context, d time.Duration) error
}

// SleepPauser waits on a timer and returns early when ctx is done.
type SleepPauser struct{}

// Pause implements Pauser.
func (SleepPauser) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dependencies are the collaborators of an Orchestrator. Reporter, Clock and
// Pauser are optional.
type Dependencies struct {
	Cache     athlete.CacheStore
	Fetcher   athlete.Fetcher
	Extractor athlete.Extractor
	Reporter  athlete.FailureReporter
	Clock     athlete.Clock
	Pauser    Pauser
}

// Result is the outcome of a run.
type Result struct {
	Records   []athlete.RawAthleteRecord
	Failed    []string
	CacheHits int
	Fetched   int
}

// Orchestrator ingests source URLs one at a time.
type Orchestrator struct {
	cfg       Config
	cache     athlete.CacheStore
	fetcher   athlete.Fetcher
	extractor athlete.Extractor
	reporter  athlete.FailureReporter
	clock     athlete.Clock
	pauser    Pauser
	logger    *zap.Logger
}

// New validates deps and builds an Orchestrator.
func New(cfg Config, deps Dependencies, logger *zap.Logger) (*Orchestrator, error) {
	switch {
	case deps.Cache == nil:
		return nil, fmt.Errorf("cache store is required")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = athlete.DefaultCacheTTL
	}
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Pauser == nil {
		deps.Pauser = SleepPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		cache:     deps.Cache,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		reporter:  deps.Reporter,
		clock:     deps.Clock,
		pauser:    deps.Pauser,
		logger:    logger,
	}, nil
}

// Run ingests urls in order. A failing URL is recorded in Result.Failed and
// never stops the run; the only error returned is cancellation of ctx, in
// which case the partial result is returned with it.
func (o *Orchestrator) Run(ctx context.Context, urls []string) (Result, error) {
	res := Result{Records: make([]athlete.RawAthleteRecord, 0, len(urls))}
	o.logger.Info("ingest started", zap.Int("urls", len(urls)))

	var runErr error
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("ingest canceled: %w", err)
			break
		}

		rec, src, err := o.ingest(ctx, url)
		switch {
		case err != nil:
			o.logger.Warn("ingest failed", zap.String("url", url), zap.Error(err))
			res.Failed = append(res.Failed, url)
		case src == sourceCache:
			res.CacheHits++
			res.Records = append(res.Records, rec)
		default:
			res.Records = append(res.Records, rec)
		}
		if src != sourceNetwork {
			continue
		}

		res.Fetched++
		if err := o.pauser.Pause(ctx, o.cfg.Delay); err != nil {
			runErr = fmt.Errorf("ingest canceled: %w", err)
			break
		}
	}

	o.report(ctx, res.Failed)
	o.logger.Info("ingest finished",
		zap.Int("records", len(res.Records)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("cache_hits", res.CacheHits),
		zap.Int("fetched", res.Fetched),
	)
	return res, runErr
}

type source int

const (
	sourceNone source = iota
	sourceCache
	sourceNetwork
)

// ingest resolves a single URL. The returned source is sourceNetwork whenever
// the page was fetched successfully, even if extraction then failed.
func (o *Orchestrator) ingest(ctx context.Context, url string) (athlete.RawAthleteRecord, source, error) {
	if rec, ok := o.lookup(ctx, url); ok {
		o.logger.Debug("cache hit", zap.String("url", url))
		return rec, sourceCache, nil
	}

	body, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		return athlete.RawAthleteRecord{}, sourceNone, fmt.Errorf("fetch page: %w", err)
	}

	rec, err := o.extractor.Extract(body, url)
	if err != nil {
		metrics.ObserveExtractFailure()
		return athlete.RawAthleteRecord{}, sourceNetwork, fmt.Errorf("extract page: %w", err)
	}

	if err := o.cache.Put(ctx, url, rec); err != nil {
		o.logger.Warn("cache write failed", zap.String("url", url), zap.Error(err))
	}
	return rec, sourceNetwork, nil
}

// lookup returns the cached payload for url when it is fresh. Cache errors
// count as a miss.
func (o *Orchestrator) lookup(ctx context.Context, url string) (athlete.RawAthleteRecord, bool) {
	entry, found, err := o.cache.Get(ctx, url)
	switch {
	case err != nil:
		o.logger.Warn("cache read failed", zap.String("url", url), zap.Error(err))
		metrics.ObserveCacheLookup(metrics.CacheError)
		return athlete.RawAthleteRecord{}, false
	case !found:
		metrics.ObserveCacheLookup(metrics.CacheMiss)
		return athlete.RawAthleteRecord{}, false
	case !entry.IsFresh(o.clock.Now(), o.cfg.CacheTTL):
		metrics.ObserveCacheLookup(metrics.CacheStale)
		return athlete.RawAthleteRecord{}, false
	default:
		metrics.ObserveCacheLookup(metrics.CacheHit)
		return entry.Payload, true
	}
}

func (o *Orchestrator) report(ctx context.Context, failed []string) {
	if len(failed) == 0 || o.reporter == nil {
		return
	}
	// Reporting still happens when the run itself was canceled.
	if err := o.reporter.Report(context.WithoutCancel(ctx), failed, o.clock.Now()); err != nil {
		o.logger.Warn("failure report not written", zap.Int("failed", len(failed)), zap.Error(err))
	}
}
