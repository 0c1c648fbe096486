package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"cpi_engine/config"
	"cpi_engine/engine"
	"cpi_engine/internal/logging"
	"cpi_engine/series"
	"cpi_engine/telemetry"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	requestsPath := flag.String("requests", "requests.yaml", "Path to batch requests file")
	healthcheck := flag.Bool("healthcheck", false, "Run a health check and exit")
	configCheck := flag.Bool("config-check", false, "Validate configuration and series data, then exit")
	flag.Parse()

	if *healthcheck {
		if err := executeHealthCheck(*cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *configCheck {
		os.Exit(executeConfigCheck(cfg))
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	collector, err := newTelemetryCollector(cfg.Telemetry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		collector = telemetry.Noop()
	}

	store, err := loadStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load series data")
	}

	eng := engine.New(store, cfg.Engine, logger, collector)

	requests, err := loadRequests(*requestsPath, cfg.Engine.MaxBatchSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load requests")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	items, summary := eng.ComputeMany(ctx, requests)
	if err := printResults(items); err != nil {
		logger.Fatal().Err(err).Msg("failed to render results")
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func executeHealthCheck(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	_, err = loadStore(cfg, zerolog.Nop())
	return err
}

func executeConfigCheck(cfg *config.Config) int {
	rules, err := series.CompileRules(cfg.Series.Rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		return 1
	}
	points, err := series.LoadFile(cfg.Series.File, cfg.Engine.DefaultSeries, cfg.Engine.DefaultRegion, rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "series data invalid: %v\n", err)
		return 1
	}
	store := series.NewMemoryStore(points)
	fmt.Printf("Series file %s: %d points, %d quality rules\n", cfg.Series.File, len(points), rules.Len())
	for _, key := range store.Keys() {
		fmt.Printf("  %s/%s: %d points\n", key.SeriesID, key.Region, store.Len(key))
	}
	fmt.Println("Configuration check completed successfully.")
	return 0
}

func loadStore(cfg *config.Config, logger zerolog.Logger) (series.Store, error) {
	rules, err := series.CompileRules(cfg.Series.Rules)
	if err != nil {
		return nil, err
	}
	points, err := series.LoadFile(cfg.Series.File, cfg.Engine.DefaultSeries, cfg.Engine.DefaultRegion, rules)
	if err != nil {
		return nil, err
	}
	var store series.Store = series.NewMemoryStore(points)
	if cfg.Series.RetryCount > 1 {
		store = series.NewRetryStore(store, cfg.Series.RetryCount, cfg.Series.RetryDelay.Duration, logger)
	}
	return store, nil
}

type requestEntry struct {
	OriginalSalary string `yaml:"original_salary"`
	CurrentSalary  string `yaml:"current_salary,omitempty"`
	HistoricalDate string `yaml:"historical_date"`
	CurrentDate    string `yaml:"current_date,omitempty"`
	Policy         string `yaml:"policy,omitempty"`
	Series         string `yaml:"series,omitempty"`
	Region         string `yaml:"region,omitempty"`
	Requester      string `yaml:"requester,omitempty"`
}

type requestFile struct {
	Requests []requestEntry `yaml:"requests"`
}

func loadRequests(path string, maxBatch int) ([]engine.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requests file: %w", err)
	}
	var file requestFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode requests file %s: %w", path, err)
	}
	if len(file.Requests) == 0 {
		return nil, fmt.Errorf("requests file %s contains no requests", path)
	}
	if len(file.Requests) > maxBatch {
		return nil, fmt.Errorf("requests file %s holds %d requests, maximum batch size is %d", path, len(file.Requests), maxBatch)
	}

	requests := make([]engine.Request, 0, len(file.Requests))
	for idx, entry := range file.Requests {
		req, err := convertRequest(entry)
		if err != nil {
			return nil, fmt.Errorf("requests file %s entry %d: %w", path, idx, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func convertRequest(entry requestEntry) (engine.Request, error) {
	var req engine.Request
	original, err := decimal.NewFromString(entry.OriginalSalary)
	if err != nil {
		return req, fmt.Errorf("parse original salary: %w", err)
	}
	req.OriginalSalary = original
	if entry.CurrentSalary != "" {
		current, err := decimal.NewFromString(entry.CurrentSalary)
		if err != nil {
			return req, fmt.Errorf("parse current salary: %w", err)
		}
		req.CurrentSalary = current
	}
	historical, err := series.ParseDate(entry.HistoricalDate)
	if err != nil {
		return req, fmt.Errorf("parse historical date: %w", err)
	}
	req.HistoricalDate = historical
	if entry.CurrentDate != "" {
		current, err := series.ParseDate(entry.CurrentDate)
		if err != nil {
			return req, fmt.Errorf("parse current date: %w", err)
		}
		req.CurrentDate = current
	}
	if entry.Policy != "" {
		policy, err := engine.ParsePolicy(entry.Policy)
		if err != nil {
			return req, err
		}
		req.Policy = policy
	}
	req.SeriesID = entry.Series
	req.Region = entry.Region
	req.RequesterID = entry.Requester
	return req, nil
}

type outputItem struct {
	Index  int            `json:"index"`
	Result *engine.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func printResults(items []engine.BatchItem) error {
	output := make([]outputItem, len(items))
	for i, item := range items {
		output[i] = outputItem{Index: i, Result: item.Result}
		if item.Err != nil {
			output[i].Error = strings.TrimSpace(item.Err.Error())
		}
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "prometheus":
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			return nil, err
		}
		return collector, nil
	default:
		return telemetry.Noop(), fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}
