// Package series provides read-only access to persisted CPI time series.
//
// A series is a monotonically-dated collection of index points scoped to a
// (series identifier, region) pair. The engine only ever reads points; the
// collection itself is replaced out-of-band by a refresh collaborator.
package series

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoPoint signals that no point exists for the requested date or range.
var ErrNoPoint = errors.New("no series point")

// Point is a single published index observation. Points are immutable once
// loaded; dates carry UTC day granularity with monthly publications pinned
// to the first of the month.
type Point struct {
	Date     time.Time
	Value    decimal.Decimal
	SeriesID string
	Region   string
}

// Key scopes store operations to one published series in one region.
type Key struct {
	SeriesID string
	Region   string
}

// Key returns the series/region scope the point belongs to.
func (p Point) Key() Key {
	return Key{SeriesID: p.SeriesID, Region: p.Region}
}

// Day normalizes a timestamp to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart truncates a timestamp to the first day of its calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Store is the read interface the calculation engine depends on. All
// operations are side-effect free; implementations must be safe for
// concurrent use.
type Store interface {
	// PointAt returns the point whose date matches exactly, or ErrNoPoint.
	PointAt(ctx context.Context, key Key, date time.Time) (Point, error)
	// PointsInRange returns all points with start <= date <= end in
	// ascending date order. An empty slice is not an error.
	PointsInRange(ctx context.Context, key Key, start, end time.Time) ([]Point, error)
	// NearestOnOrBefore returns the latest point dated on or before the
	// given date, or ErrNoPoint.
	NearestOnOrBefore(ctx context.Context, key Key, date time.Time) (Point, error)
	// NearestAfter returns the earliest point dated strictly after the
	// given date, or ErrNoPoint.
	NearestAfter(ctx context.Context, key Key, date time.Time) (Point, error)
}
