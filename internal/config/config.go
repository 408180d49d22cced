// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/athlete-pipeline/internal/logging"
	"github.com/JakeFAU/athlete-pipeline/internal/merge"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendGCS    = "gcs"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Failures FailuresConfig `mapstructure:"failures"`
	Baseline BaselineConfig `mapstructure:"baseline"`
	Output   OutputConfig   `mapstructure:"output"`
	Merge    merge.Config   `mapstructure:"merge"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  logging.Config `mapstructure:"logging"`
}

// InputConfig locates the source URL list.
type InputConfig struct {
	URLsFile string `mapstructure:"urls_file"`
}

// FetcherConfig governs outbound requests.
type FetcherConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
	DelaySeconds   float64 `mapstructure:"delay_seconds"`
	MaxRPS         float64 `mapstructure:"max_rps"`
	Burst          int     `mapstructure:"burst"`
}

// CacheConfig selects and configures the extraction cache.
type CacheConfig struct {
	Backend  string  `mapstructure:"backend"`
	Path     string  `mapstructure:"path"`
	TTLHours float64 `mapstructure:"ttl_hours"`
}

// FailuresConfig locates the failed URL report.
type FailuresConfig struct {
	Path string `mapstructure:"path"`
}

// BaselineConfig locates the curated baseline. An empty path means the
// previously published output file.
type BaselineConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig selects where the output document goes.
type OutputConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSObject string `mapstructure:"gcs_object"`
}

// DBConfig controls run history persistence. Empty DSN disables it.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds metadata for run notifications. Empty topic disables
// them.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig controls the node_exporter textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load builds a Config from disk/environment. Environment variables use the
// PIPELINE prefix, e.g. PIPELINE_OUTPUT_PATH.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key gets a default, even an empty one, so AutomaticEnv can override
// it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input.urls_file", "data/raw/athlete_urls.txt")
	v.SetDefault("fetcher.user_agent", "")
	v.SetDefault("fetcher.timeout_seconds", 10)
	v.SetDefault("fetcher.delay_seconds", 1)
	v.SetDefault("fetcher.max_rps", 0)
	v.SetDefault("fetcher.burst", 1)
	v.SetDefault("cache.backend", BackendFile)
	v.SetDefault("cache.path", "data/cache/scraper_cache.json")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("failures.path", "data/cache/logs/failed_urls.txt")
	v.SetDefault("baseline.path", "")
	v.SetDefault("output.backend", BackendFile)
	v.SetDefault("output.path", "src/data/athletes.json")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.gcs_object", "athletes.json")
	v.SetDefault("merge.id_strategy", merge.IDStrategySequential)
	v.SetDefault("merge.id_prefix", merge.DefaultIDPrefix)
	v.SetDefault("merge.recent_limit", merge.DefaultRecentLimit)
	v.SetDefault("merge.default_team", merge.DefaultTeam)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "ingest_runs")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Fetcher.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetcher.timeout_seconds must be > 0")
	}
	if c.Fetcher.DelaySeconds < 0 {
		return fmt.Errorf("fetcher.delay_seconds must be >= 0")
	}
	if c.Fetcher.MaxRPS < 0 {
		return fmt.Errorf("fetcher.max_rps must be >= 0")
	}
	if c.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache.ttl_hours must be > 0")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Cache.Backend)
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required")
	}
	switch c.Output.Backend {
	case BackendFile:
		if c.Output.Path == "" {
			return fmt.Errorf("output.path is required for the file backend")
		}
	case BackendGCS:
		if c.Output.GCSBucket == "" || c.Output.GCSObject == "" {
			return fmt.Errorf("output.gcs_bucket and output.gcs_object are required for the gcs backend")
		}
	default:
		return fmt.Errorf("output.backend must be %q or %q, got %q", BackendFile, BackendGCS, c.Output.Backend)
	}
	switch c.Merge.IDStrategy {
	case merge.IDStrategyStable, merge.IDStrategySequential:
	default:
		return fmt.Errorf("merge.id_strategy must be %q or %q", merge.IDStrategyStable, merge.IDStrategySequential)
	}
	if c.Merge.RecentLimit <= 0 {
		return fmt.Errorf("merge.recent_limit must be > 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// FetchTimeout is the per-request timeout.
func (c Config) FetchTimeout() time.Duration {
	return seconds(c.Fetcher.TimeoutSeconds)
}

// FetchDelay is the pause after each live fetch.
func (c Config) FetchDelay() time.Duration {
	return seconds(c.Fetcher.DelaySeconds)
}

// CacheTTL is the cache staleness threshold.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours * float64(time.Hour))
}

// BaselinePath returns the curated baseline location. When output goes to a
// local file and no baseline is configured, the previous output is used.
func (c Config) BaselinePath() string {
	if c.Baseline.Path != "" || c.Output.Backend != BackendFile {
		return c.Baseline.Path
	}
	return c.Output.Path
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
