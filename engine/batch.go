package engine

import (
	"context"
	"errors"
	"time"

	"cpi_engine/series"
)

// BatchItem is one slot of a batch response, aligned 1:1 with the input
// order. Exactly one of Result and Err is set.
type BatchItem struct {
	Result *Result
	Err    error
}

// BatchSummary aggregates per-slot outcomes for the caller.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
}

type dateSpan struct {
	min time.Time
	max time.Time
}

func (s *dateSpan) extend(t time.Time) {
	if s.min.IsZero() || t.Before(s.min) {
		s.min = t
	}
	if s.max.IsZero() || t.After(s.max) {
		s.max = t
	}
}

// ComputeMany runs a batch of requests against a single bulk fetch per
// (series, region). A failing slot never aborts the rest; the returned
// slice preserves input order.
func (e *Engine) ComputeMany(ctx context.Context, requests []Request) ([]BatchItem, BatchSummary) {
	items := make([]BatchItem, len(requests))
	normalized := make([]Request, len(requests))

	spans := make(map[series.Key]*dateSpan)
	for i, req := range requests {
		norm, err := e.normalize(req)
		if err != nil {
			items[i] = BatchItem{Err: err}
			continue
		}
		normalized[i] = norm
		key := series.Key{SeriesID: norm.SeriesID, Region: norm.Region}
		span, ok := spans[key]
		if !ok {
			span = &dateSpan{}
			spans[key] = span
		}
		span.extend(norm.HistoricalDate)
		span.extend(norm.CurrentDate)
	}

	// One PointsInRange per key; the margin widens the span so bracketing
	// points for NearestDate/Interpolated near the edges are included.
	fetched := make([]series.Point, 0, 64)
	fetchErrs := make(map[series.Key]error)
	windows := make(map[series.Key]dateSpan)
	for key, span := range spans {
		start := span.min.Add(-e.fetchMargin)
		end := span.max.Add(e.fetchMargin)
		e.collector.IncStoreQuery("points_in_range")
		points, err := e.store.PointsInRange(ctx, key, start, end)
		if err != nil {
			fetchErrs[key] = &UnavailableError{Op: "points_in_range", Err: err}
			e.logger.Error().Err(err).
				Str("series", key.SeriesID).
				Str("region", key.Region).
				Msg("bulk fetch failed")
			continue
		}
		fetched = append(fetched, points...)
		windows[key] = dateSpan{min: start, max: end}
	}

	snapshot := &windowedStore{
		snapshot: series.NewMemoryStore(fetched),
		source:   e.store,
		windows:  windows,
	}
	snapshotResolver := &resolver{store: snapshot, cache: e.cache, collector: e.collector, logger: e.logger}

	// Warm the shared cache with the exact points we already hold. Only
	// first-of-month points qualify: ExactDate resolves against the month
	// start, and a mid-month point must not shadow the real monthly value.
	for _, point := range fetched {
		if point.Value.Sign() <= 0 {
			continue
		}
		monthStart := series.MonthStart(point.Date)
		if !point.Date.Equal(monthStart) {
			continue
		}
		e.cache.Put(CacheKey{
			SeriesID: point.SeriesID,
			Region:   point.Region,
			Date:     monthStart,
			Policy:   PolicyExactDate,
		}, point.Value)
	}

	summary := BatchSummary{Total: len(requests)}
	for i := range requests {
		if items[i].Err != nil {
			summary.Failed++
			continue
		}
		req := normalized[i]
		key := series.Key{SeriesID: req.SeriesID, Region: req.Region}
		if err, failed := fetchErrs[key]; failed {
			items[i] = BatchItem{Err: err}
			summary.Failed++
			continue
		}
		result, err := e.computeWith(ctx, snapshotResolver, req)
		if err != nil {
			items[i] = BatchItem{Err: err}
			summary.Failed++
			continue
		}
		items[i] = BatchItem{Result: &result}
		summary.Succeeded++
	}

	e.collector.ObserveBatch(summary.Total, summary.Failed)
	e.logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("batch completed")
	return items, summary
}

// windowedStore serves lookups from the bulk-fetched snapshot and falls back
// to the source store whenever the answer could depend on points outside the
// fetched window. A nearest-point hit inside the window is always authoritative
// (any closer point would have been fetched too); a miss is not, because the
// bracketing point may lie beyond the window edge.
type windowedStore struct {
	snapshot series.Store
	source   series.Store
	windows  map[series.Key]dateSpan
}

func (w *windowedStore) covers(key series.Key, start, end time.Time) bool {
	window, ok := w.windows[key]
	return ok && !start.Before(window.min) && !end.After(window.max)
}

func (w *windowedStore) PointAt(ctx context.Context, key series.Key, date time.Time) (series.Point, error) {
	if w.covers(key, date, date) {
		return w.snapshot.PointAt(ctx, key, date)
	}
	return w.source.PointAt(ctx, key, date)
}

func (w *windowedStore) PointsInRange(ctx context.Context, key series.Key, start, end time.Time) ([]series.Point, error) {
	if w.covers(key, start, end) {
		return w.snapshot.PointsInRange(ctx, key, start, end)
	}
	return w.source.PointsInRange(ctx, key, start, end)
}

func (w *windowedStore) NearestOnOrBefore(ctx context.Context, key series.Key, date time.Time) (series.Point, error) {
	if w.covers(key, date, date) {
		point, err := w.snapshot.NearestOnOrBefore(ctx, key, date)
		if err == nil || !errors.Is(err, series.ErrNoPoint) {
			return point, err
		}
		// The prior point may predate the window.
	}
	return w.source.NearestOnOrBefore(ctx, key, date)
}

func (w *windowedStore) NearestAfter(ctx context.Context, key series.Key, date time.Time) (series.Point, error) {
	if w.covers(key, date, date) {
		point, err := w.snapshot.NearestAfter(ctx, key, date)
		if err == nil || !errors.Is(err, series.ErrNoPoint) {
			return point, err
		}
	}
	return w.source.NearestAfter(ctx, key, date)
}
