package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cpi_engine/series"
	"cpi_engine/telemetry"
)

// Policy selects how an index value is resolved for a target date when no
// exact data point exists.
type Policy string

const (
	// PolicyExactDate requires a point in the target's calendar month.
	PolicyExactDate Policy = "exact_date"
	// PolicyNearestDate prefers the latest point on or before the target
	// and falls back to the earliest later point. The past bias is
	// intentional: CPI releases lag, so the most recently known value is
	// the conservative choice.
	PolicyNearestDate Policy = "nearest_date"
	// PolicyInterpolated linearly interpolates between the bracketing
	// points by day-count fraction, clamping to one side when the other
	// is missing.
	PolicyInterpolated Policy = "interpolated"
	// PolicyMonthlyAverage averages every point inside the target's
	// calendar month.
	PolicyMonthlyAverage Policy = "monthly_average"
)

// ParsePolicy maps a config or request string onto a Policy.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyExactDate:
		return PolicyExactDate, nil
	case PolicyNearestDate:
		return PolicyNearestDate, nil
	case PolicyInterpolated:
		return PolicyInterpolated, nil
	case PolicyMonthlyAverage:
		return PolicyMonthlyAverage, nil
	default:
		return "", fmt.Errorf("unknown lookup policy %q", raw)
	}
}

// resolver answers index lookups through the cache with the store as the
// backing source.
type resolver struct {
	store     series.Store
	cache     Cache
	collector telemetry.Collector
	logger    zerolog.Logger
}

// normalizedDate picks the cache-key date for a policy. Month-scoped
// policies collapse to the first of the month; day-sensitive policies keep
// day granularity because the resolved value depends on it.
func normalizedDate(date time.Time, policy Policy) time.Time {
	switch policy {
	case PolicyExactDate, PolicyMonthlyAverage:
		return series.MonthStart(date)
	default:
		return series.Day(date)
	}
}

func (r *resolver) resolve(ctx context.Context, key series.Key, date time.Time, policy Policy) (decimal.Decimal, error) {
	target := normalizedDate(date, policy)
	ck := CacheKey{SeriesID: key.SeriesID, Region: key.Region, Date: target, Policy: policy}
	if value, ok := r.cache.Get(ck); ok {
		r.collector.IncCacheHit(string(policy))
		return value, nil
	}
	r.collector.IncCacheMiss(string(policy))

	var (
		value decimal.Decimal
		err   error
	)
	switch policy {
	case PolicyExactDate:
		value, err = r.resolveExact(ctx, key, target)
	case PolicyNearestDate:
		value, err = r.resolveNearest(ctx, key, target)
	case PolicyInterpolated:
		value, err = r.resolveInterpolated(ctx, key, target)
	case PolicyMonthlyAverage:
		value, err = r.resolveMonthlyAverage(ctx, key, target)
	default:
		return decimal.Zero, invalidRequestf("unknown lookup policy %q", policy)
	}
	if err != nil {
		return decimal.Zero, err
	}
	r.cache.Put(ck, value)
	return value, nil
}

func (r *resolver) resolveExact(ctx context.Context, key series.Key, target time.Time) (decimal.Decimal, error) {
	r.collector.IncStoreQuery("point_at")
	point, err := r.store.PointAt(ctx, key, target)
	if err != nil {
		return decimal.Zero, r.mapStoreErr("point_at", key, target, PolicyExactDate, err)
	}
	return r.checkedValue(point)
}

func (r *resolver) resolveNearest(ctx context.Context, key series.Key, target time.Time) (decimal.Decimal, error) {
	r.collector.IncStoreQuery("nearest_on_or_before")
	point, err := r.store.NearestOnOrBefore(ctx, key, target)
	if err == nil {
		return r.checkedValue(point)
	}
	if !errors.Is(err, series.ErrNoPoint) {
		return decimal.Zero, r.mapStoreErr("nearest_on_or_before", key, target, PolicyNearestDate, err)
	}
	r.collector.IncStoreQuery("nearest_after")
	point, err = r.store.NearestAfter(ctx, key, target)
	if err != nil {
		return decimal.Zero, r.mapStoreErr("nearest_after", key, target, PolicyNearestDate, err)
	}
	return r.checkedValue(point)
}

func (r *resolver) resolveInterpolated(ctx context.Context, key series.Key, target time.Time) (decimal.Decimal, error) {
	r.collector.IncStoreQuery("nearest_on_or_before")
	before, beforeErr := r.store.NearestOnOrBefore(ctx, key, target)
	if beforeErr != nil && !errors.Is(beforeErr, series.ErrNoPoint) {
		return decimal.Zero, r.mapStoreErr("nearest_on_or_before", key, target, PolicyInterpolated, beforeErr)
	}
	r.collector.IncStoreQuery("nearest_after")
	after, afterErr := r.store.NearestAfter(ctx, key, target)
	if afterErr != nil && !errors.Is(afterErr, series.ErrNoPoint) {
		return decimal.Zero, r.mapStoreErr("nearest_after", key, target, PolicyInterpolated, afterErr)
	}

	switch {
	case beforeErr == nil && afterErr == nil:
		if _, err := r.checkedValue(before); err != nil {
			return decimal.Zero, err
		}
		if _, err := r.checkedValue(after); err != nil {
			return decimal.Zero, err
		}
		if before.Date.Equal(after.Date) {
			return before.Value, nil
		}
		return interpolate(before, after, target), nil
	case beforeErr == nil:
		// No extrapolation beyond available data.
		return r.checkedValue(before)
	case afterErr == nil:
		return r.checkedValue(after)
	default:
		return decimal.Zero, &NotFoundError{SeriesID: key.SeriesID, Region: key.Region, Date: target, Policy: PolicyInterpolated}
	}
}

func (r *resolver) resolveMonthlyAverage(ctx context.Context, key series.Key, monthStart time.Time) (decimal.Decimal, error) {
	monthEnd := monthStart.AddDate(0, 1, -1)
	r.collector.IncStoreQuery("points_in_range")
	points, err := r.store.PointsInRange(ctx, key, monthStart, monthEnd)
	if err != nil {
		return decimal.Zero, r.mapStoreErr("points_in_range", key, monthStart, PolicyMonthlyAverage, err)
	}
	if len(points) == 0 {
		return decimal.Zero, &NotFoundError{SeriesID: key.SeriesID, Region: key.Region, Date: monthStart, Policy: PolicyMonthlyAverage}
	}
	sum := decimal.Zero
	for _, point := range points {
		if _, err := r.checkedValue(point); err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(point.Value)
	}
	return sum.Div(decimal.NewFromInt(int64(len(points)))), nil
}

// interpolate computes before + (after-before) * (daysFromBefore/daysTotal)
// with decimal arithmetic throughout.
func interpolate(before, after series.Point, target time.Time) decimal.Decimal {
	daysTotal := daysBetween(before.Date, after.Date)
	daysFrom := daysBetween(before.Date, target)
	fraction := decimal.NewFromInt(daysFrom).Div(decimal.NewFromInt(daysTotal))
	return before.Value.Add(after.Value.Sub(before.Value).Mul(fraction))
}

func daysBetween(a, b time.Time) int64 {
	return int64(b.Sub(a).Hours() / 24)
}

func (r *resolver) checkedValue(point series.Point) (decimal.Decimal, error) {
	if point.Value.Sign() <= 0 {
		r.logger.Error().
			Str("series", point.SeriesID).
			Str("region", point.Region).
			Time("date", point.Date).
			Str("value", point.Value.String()).
			Msg("malformed CPI point")
		return decimal.Zero, &InvalidCPIDataError{
			SeriesID: point.SeriesID,
			Region:   point.Region,
			Date:     point.Date,
			Value:    point.Value,
		}
	}
	return point.Value, nil
}

func (r *resolver) mapStoreErr(op string, key series.Key, date time.Time, policy Policy, err error) error {
	if errors.Is(err, series.ErrNoPoint) {
		return &NotFoundError{SeriesID: key.SeriesID, Region: key.Region, Date: date, Policy: policy}
	}
	return &UnavailableError{Op: op, Err: err}
}
