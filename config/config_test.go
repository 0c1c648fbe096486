package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
series:
  file: cpi.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, time.Hour, cfg.Engine.CacheTTL.Duration)
	require.Equal(t, 7*24*time.Hour, cfg.Engine.FutureSlack.Duration)
	require.Equal(t, 93*24*time.Hour, cfg.Engine.FetchMargin.Duration)
	require.Equal(t, "CPIAUCSL", cfg.Engine.DefaultSeries)
	require.Equal(t, "US", cfg.Engine.DefaultRegion)
	require.Equal(t, 50, cfg.Engine.MaxBatchSize)
	require.Equal(t, 1, cfg.Series.RetryCount)
}

func TestLoadParsesFullDocument(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: text
  loki:
    enabled: true
    url: http://loki:3100
    labels:
      env: test
telemetry:
  enabled: true
  provider: prometheus
engine:
  cache_ttl: 30m
  future_slack: 48h
  default_series: CPILFESL
  default_region: EU
  max_batch_size: 10
series:
  file: cpi.yaml
  rules:
    - value > 0
  retry_count: 3
  retry_delay: 100ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Logging.Loki.Enabled)
	require.Equal(t, "test", cfg.Logging.Loki.Labels["env"])
	require.True(t, cfg.Telemetry.Enabled)
	require.Equal(t, 30*time.Minute, cfg.Engine.CacheTTL.Duration)
	require.Equal(t, 48*time.Hour, cfg.Engine.FutureSlack.Duration)
	require.Equal(t, "CPILFESL", cfg.Engine.DefaultSeries)
	require.Equal(t, 10, cfg.Engine.MaxBatchSize)
	require.Len(t, cfg.Series.Rules, 1)
	require.Equal(t, 3, cfg.Series.RetryCount)
	require.Equal(t, 100*time.Millisecond, cfg.Series.RetryDelay.Duration)
}

func TestLoadRejectsMissingSeriesFile(t *testing.T) {
	path := writeConfig(t, "engine:\n  max_batch_size: 5\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "series.file is required")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
engine:
  cache_ttl: soon
series:
  file: cpi.yaml
`)

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse duration")
}

func TestValidateRejectsBadBatchSize(t *testing.T) {
	cfg := &Config{}
	cfg.Series.File = "cpi.yaml"
	cfg.ApplyDefaults()
	cfg.Engine.MaxBatchSize = -1

	require.Error(t, cfg.Validate())
}

func TestDurationMarshalRoundTrip(t *testing.T) {
	d := Duration{Duration: 90 * time.Second}
	out, err := d.MarshalYAML()
	require.NoError(t, err)
	require.Equal(t, "1m30s", out)
}
