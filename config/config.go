// Package config loads and validates the engine configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// LokiConfig enables shipping log lines to a Loki endpoint.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels,omitempty"`
}

// LoggingConfig controls the zerolog setup. Service names the emitting
// process in log fields and Loki labels.
type LoggingConfig struct {
	Level   string     `yaml:"level,omitempty"`
	Format  string     `yaml:"format,omitempty"`
	Service string     `yaml:"service,omitempty"`
	Loki    LokiConfig `yaml:"loki,omitempty"`
}

// TelemetryConfig selects the metrics backend.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider,omitempty"`
}

// EngineConfig tunes the calculation engine.
type EngineConfig struct {
	CacheTTL      Duration `yaml:"cache_ttl,omitempty"`
	FutureSlack   Duration `yaml:"future_slack,omitempty"`
	FetchMargin   Duration `yaml:"fetch_margin,omitempty"`
	DefaultSeries string   `yaml:"default_series,omitempty"`
	DefaultRegion string   `yaml:"default_region,omitempty"`
	MaxBatchSize  int      `yaml:"max_batch_size,omitempty"`
}

// SeriesConfig points at the persisted CPI series and its quality rules.
type SeriesConfig struct {
	File       string   `yaml:"file"`
	Rules      []string `yaml:"rules,omitempty"`
	RetryCount int      `yaml:"retry_count,omitempty"`
	RetryDelay Duration `yaml:"retry_delay,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
	Engine    EngineConfig    `yaml:"engine,omitempty"`
	Series    SeriesConfig    `yaml:"series"`
}

const (
	defaultCacheTTL     = time.Hour
	defaultFutureSlack  = 7 * 24 * time.Hour
	defaultFetchMargin  = 93 * 24 * time.Hour
	defaultSeriesID     = "CPIAUCSL"
	defaultRegion       = "US"
	defaultMaxBatchSize = 50
)

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Engine.CacheTTL.Duration == 0 {
		c.Engine.CacheTTL.Duration = defaultCacheTTL
	}
	if c.Engine.FutureSlack.Duration == 0 {
		c.Engine.FutureSlack.Duration = defaultFutureSlack
	}
	if c.Engine.FetchMargin.Duration == 0 {
		c.Engine.FetchMargin.Duration = defaultFetchMargin
	}
	if c.Engine.DefaultSeries == "" {
		c.Engine.DefaultSeries = defaultSeriesID
	}
	if c.Engine.DefaultRegion == "" {
		c.Engine.DefaultRegion = defaultRegion
	}
	if c.Engine.MaxBatchSize == 0 {
		c.Engine.MaxBatchSize = defaultMaxBatchSize
	}
	if c.Series.RetryCount == 0 {
		c.Series.RetryCount = 1
	}
	if c.Series.RetryDelay.Duration == 0 {
		c.Series.RetryDelay.Duration = 250 * time.Millisecond
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Series.File == "" {
		return fmt.Errorf("series.file is required")
	}
	if c.Engine.CacheTTL.Duration < 0 {
		return fmt.Errorf("engine.cache_ttl must not be negative")
	}
	if c.Engine.MaxBatchSize < 1 {
		return fmt.Errorf("engine.max_batch_size must be at least 1")
	}
	if c.Series.RetryCount < 1 {
		return fmt.Errorf("series.retry_count must be at least 1")
	}
	return nil
}
