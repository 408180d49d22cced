package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/athlete-pipeline/internal/app"
	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/config"
	"github.com/JakeFAU/athlete-pipeline/internal/ingest"
	"github.com/JakeFAU/athlete-pipeline/internal/logging"
)

// runner is the part of *app.Pipeline the ingest command drives.
type runner interface {
	Run(ctx context.Context, urls []string) (athlete.RunSummary, error)
	Close() error
}

// buildRunner is a variable so tests can swap in a fake pipeline.
var buildRunner = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (runner, error) {
	return app.Build(ctx, cfg, logger)
}

type ingestFlags struct {
	urls   string
	output string
}

// newIngestCmd creates the 'ingest' subcommand.
func newIngestCmd(cfgFile *string) *cobra.Command {
	var flags ingestFlags
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Runs one ingestion over the URL list",
		Long: `Reads the athlete URL list, serves fresh records from the cache and
fetches the rest, then writes the merged roster document. Failed URLs are
listed in the failure log and do not stop the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd.Context(), *cfgFile, flags)
		},
	}
	cmd.Flags().StringVar(&flags.urls, "urls", "", "URL list file (overrides input.urls_file)")
	cmd.Flags().StringVar(&flags.output, "output", "", "output document path (overrides output.path)")
	return cmd
}

func runIngest(ctx context.Context, cfgFile string, flags ingestFlags) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.urls != "" {
		cfg.Input.URLsFile = flags.urls
	}
	if flags.output != "" {
		cfg.Output.Path = flags.output
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	urls, err := ingest.ReadURLs(cfg.Input.URLsFile)
	if err != nil {
		return fmt.Errorf("read url list: %w", err)
	}

	pipeline, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}
	defer func() {
		if cerr := pipeline.Close(); cerr != nil {
			logger.Warn("Failed to close pipeline", zap.Error(cerr))
		}
	}()

	start := time.Now()
	summary, err := pipeline.Run(ctx, urls)
	logger.Info("Ingest command finished.",
		zap.String("run_id", summary.RunID),
		zap.Int("urls", summary.URLCount),
		zap.Int("ingested", summary.Ingested),
		zap.Int("cache_hits", summary.CacheHits),
		zap.Int("fetched", summary.Fetched),
		zap.Int("failed", summary.Failed),
		zap.String("output", summary.OutputURI),
		zap.Duration("elapsed", time.Since(start)),
	)
	return err
}
