// Package engine resolves CPI index values under selectable lookup policies
// and computes inflation-adjusted salary figures with exact decimal
// arithmetic.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cpi_engine/config"
	"cpi_engine/series"
	"cpi_engine/telemetry"
)

// minRequestDate bounds how far back a request may reach. Official CPI
// publication starts in 1913; anything before 1900 is a malformed request
// rather than missing data.
var minRequestDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Request describes one adjustment calculation. CurrentSalary may be zero
// when the caller only needs the adjusted target; CurrentDate defaults to
// today; SeriesID and Region default from configuration.
type Request struct {
	OriginalSalary decimal.Decimal
	CurrentSalary  decimal.Decimal
	HistoricalDate time.Time
	CurrentDate    time.Time
	Policy         Policy
	SeriesID       string
	Region         string
	RequesterID    string
}

// Engine is the calculation core: lookup resolution, cache and adjustment
// arithmetic behind one entry point. Safe for concurrent use.
type Engine struct {
	store     series.Store
	cache     Cache
	resolver  *resolver
	collector telemetry.Collector
	logger    zerolog.Logger

	now           func() time.Time
	defaultSeries string
	defaultRegion string
	futureSlack   time.Duration
	fetchMargin   time.Duration
}

// New builds an engine on top of the given store. A nil collector disables
// telemetry; options may swap the cache or the clock.
func New(store series.Store, cfg config.EngineConfig, logger zerolog.Logger, collector telemetry.Collector, opts ...Option) *Engine {
	if collector == nil {
		collector = telemetry.Noop()
	}
	e := &Engine{
		store:         store,
		collector:     collector,
		logger:        logger,
		now:           time.Now,
		defaultSeries: cfg.DefaultSeries,
		defaultRegion: cfg.DefaultRegion,
		futureSlack:   cfg.FutureSlack.Duration,
		fetchMargin:   cfg.FetchMargin.Duration,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewTTLCache(cfg.CacheTTL.Duration, func() time.Time { return e.now() })
	}
	e.resolver = &resolver{store: store, cache: e.cache, collector: collector, logger: logger}
	return e
}

// ClearCache drops every cached index value.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CachedEntries reports the current cache population.
func (e *Engine) CachedEntries() int {
	return e.cache.Len()
}

// normalize applies defaults and validates the request. No store call
// happens before this succeeds.
func (e *Engine) normalize(req Request) (Request, error) {
	now := e.now()
	if req.SeriesID == "" {
		req.SeriesID = e.defaultSeries
	}
	if req.Region == "" {
		req.Region = e.defaultRegion
	}
	if req.Policy == "" {
		req.Policy = PolicyNearestDate
	}
	if _, err := ParsePolicy(string(req.Policy)); err != nil {
		return Request{}, &InvalidRequestError{Reason: err.Error()}
	}
	if req.SeriesID == "" {
		return Request{}, invalidRequestf("series identifier is empty")
	}
	if req.OriginalSalary.Sign() <= 0 {
		return Request{}, invalidRequestf("original salary %s must be positive", req.OriginalSalary)
	}
	if req.CurrentSalary.Sign() < 0 {
		return Request{}, invalidRequestf("current salary %s must not be negative", req.CurrentSalary)
	}
	if req.HistoricalDate.IsZero() {
		return Request{}, invalidRequestf("historical date is required")
	}
	if req.CurrentDate.IsZero() {
		req.CurrentDate = series.Day(now)
	}
	req.HistoricalDate = series.Day(req.HistoricalDate)
	req.CurrentDate = series.Day(req.CurrentDate)
	if req.HistoricalDate.Before(minRequestDate) {
		return Request{}, invalidRequestf("historical date %s is too far in the past", req.HistoricalDate.Format("2006-01-02"))
	}
	if !req.CurrentDate.After(req.HistoricalDate) {
		return Request{}, invalidRequestf("current date %s must be after historical date %s",
			req.CurrentDate.Format("2006-01-02"), req.HistoricalDate.Format("2006-01-02"))
	}
	horizon := now.Add(e.futureSlack)
	if req.CurrentDate.After(horizon) {
		return Request{}, invalidRequestf("current date %s is too far in the future", req.CurrentDate.Format("2006-01-02"))
	}
	return req, nil
}

// Compute validates the request, resolves both index values and returns the
// adjustment result.
func (e *Engine) Compute(ctx context.Context, req Request) (Result, error) {
	normalized, err := e.normalize(req)
	if err != nil {
		e.collector.IncCalculation("invalid")
		return Result{}, err
	}
	result, err := e.computeWith(ctx, e.resolver, normalized)
	if err != nil {
		e.collector.IncCalculation("error")
		return Result{}, err
	}
	e.collector.IncCalculation("ok")
	return result, nil
}

func (e *Engine) computeWith(ctx context.Context, r *resolver, req Request) (Result, error) {
	key := series.Key{SeriesID: req.SeriesID, Region: req.Region}
	historicalIndex, err := r.resolve(ctx, key, req.HistoricalDate, req.Policy)
	if err != nil {
		return Result{}, err
	}
	currentIndex, err := r.resolve(ctx, key, req.CurrentDate, req.Policy)
	if err != nil {
		return Result{}, err
	}
	result, err := ComputeAdjustment(req.OriginalSalary, req.CurrentSalary, historicalIndex, currentIndex, e.now())
	if err != nil {
		return Result{}, err
	}
	e.logger.Info().
		Str("requester", req.RequesterID).
		Str("series", req.SeriesID).
		Str("region", req.Region).
		Str("policy", string(req.Policy)).
		Time("historical_date", req.HistoricalDate).
		Time("current_date", req.CurrentDate).
		Str("adjusted_salary", result.AdjustedSalary.String()).
		Msg("adjustment calculated")
	return result, nil
}
