// Package app wires the pipeline components together and runs one ingestion.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/baseline"
	"github.com/JakeFAU/athlete-pipeline/internal/clock"
	"github.com/JakeFAU/athlete-pipeline/internal/ingest"
	"github.com/JakeFAU/athlete-pipeline/internal/merge"
	"github.com/JakeFAU/athlete-pipeline/internal/metrics"
)

// ErrNoRecords is returned after the output was written when URLs were
// supplied but none of them could be ingested.
var ErrNoRecords = errors.New("no athlete records ingested")

// Pipeline holds the long-lived services of a run.
type Pipeline struct {
	orchestrator *ingest.Orchestrator
	processor    *merge.Processor
	sink         athlete.DocumentSink
	recorder     athlete.RunRecorder
	publisher    athlete.Publisher
	ids          athlete.IDGenerator
	clock        athlete.Clock
	logger       *zap.Logger

	baselinePath    string
	topic           string
	metricsTextfile string
	closers         []func() error
}

// Services are the collaborators of a Pipeline. Recorder, Publisher, IDs and
// Clock are optional.
type Services struct {
	Orchestrator *ingest.Orchestrator
	Processor    *merge.Processor
	Sink         athlete.DocumentSink
	Recorder     athlete.RunRecorder
	Publisher    athlete.Publisher
	IDs          athlete.IDGenerator
	Clock        athlete.Clock
}

// Options are the pipeline settings that are not services.
type Options struct {
	// BaselinePath is the curated baseline file; empty means none.
	BaselinePath string
	// Topic receives run notifications when a Publisher is set.
	Topic string
	// MetricsTextfile receives a metrics snapshot after each run when set.
	MetricsTextfile string
}

// New assembles a Pipeline from already constructed services.
func New(svc Services, opts Options, logger *zap.Logger) (*Pipeline, error) {
	switch {
	case svc.Orchestrator == nil:
		return nil, fmt.Errorf("orchestrator is required")
	case svc.Processor == nil:
		return nil, fmt.Errorf("processor is required")
	case svc.Sink == nil:
		return nil, fmt.Errorf("document sink is required")
	}
	if svc.Clock == nil {
		svc.Clock = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		orchestrator:    svc.Orchestrator,
		processor:       svc.Processor,
		sink:            svc.Sink,
		recorder:        svc.Recorder,
		publisher:       svc.Publisher,
		ids:             svc.IDs,
		clock:           svc.Clock,
		logger:          logger,
		baselinePath:    opts.BaselinePath,
		topic:           opts.Topic,
		metricsTextfile: opts.MetricsTextfile,
	}, nil
}

// Run ingests urls, merges them with the baseline and writes the output
// document. Individual URL failures only show up in the summary.
func (p *Pipeline) Run(ctx context.Context, urls []string) (athlete.RunSummary, error) {
	summary := athlete.RunSummary{
		RunID:     p.newRunID(),
		StartedAt: p.clock.Now(),
		URLCount:  len(urls),
	}
	logger := p.logger.With(zap.String("run_id", summary.RunID))

	res, err := p.orchestrator.Run(ctx, urls)
	summary.Ingested = len(res.Records)
	summary.CacheHits = res.CacheHits
	summary.Fetched = res.Fetched
	summary.Failed = len(res.Failed)
	if err != nil {
		return summary, fmt.Errorf("ingest athletes: %w", err)
	}

	curated := p.loadBaseline(logger)
	records := p.processor.Process(res.Records, curated)
	doc := merge.NewDocument(records, p.clock.Now())

	uri, err := p.sink.Write(ctx, doc)
	if err != nil {
		return summary, fmt.Errorf("write output document: %w", err)
	}
	metrics.SetAthletesWritten(len(records))
	summary.OutputURI = uri
	summary.FinishedAt = p.clock.Now()
	logger.Info("output written",
		zap.String("uri", uri),
		zap.Int("athletes", len(records)),
		zap.Int("failed", summary.Failed),
	)

	p.notify(ctx, logger, summary)

	if len(urls) > 0 && len(res.Records) == 0 {
		return summary, ErrNoRecords
	}
	return summary, nil
}

func (p *Pipeline) newRunID() string {
	if p.ids == nil {
		return ""
	}
	id, err := p.ids.NewID()
	if err != nil {
		p.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}

func (p *Pipeline) loadBaseline(logger *zap.Logger) athlete.Baseline {
	if p.baselinePath == "" {
		return athlete.Baseline{}
	}
	curated, err := baseline.LoadFile(p.baselinePath)
	if err != nil {
		logger.Warn("baseline unusable, merging without it", zap.String("path", p.baselinePath), zap.Error(err))
	}
	logger.Debug("baseline loaded", zap.String("path", p.baselinePath), zap.Int("athletes", len(curated)))
	return curated
}

// notify records and publishes the summary and exports metrics. Failures are
// logged only.
func (p *Pipeline) notify(ctx context.Context, logger *zap.Logger, summary athlete.RunSummary) {
	if p.recorder != nil && summary.RunID != "" {
		if err := p.recorder.RecordRun(ctx, summary); err != nil {
			logger.Warn("run history not recorded", zap.Error(err))
		}
	}
	if p.publisher != nil {
		if id, err := p.publisher.Publish(ctx, p.topic, summary); err != nil {
			logger.Warn("run notification not published", zap.Error(err))
		} else {
			logger.Debug("run notification published", zap.String("message_id", id))
		}
	}
	if p.metricsTextfile != "" {
		if err := metrics.WriteTextfile(p.metricsTextfile); err != nil {
			logger.Warn("metrics textfile not written", zap.String("path", p.metricsTextfile), zap.Error(err))
		}
	}
}

// Close releases the resources acquired by Build, in reverse order.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
