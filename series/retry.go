package series

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// RetryStore decorates a Store with bounded retries for transient failures.
// ErrNoPoint and context cancellation pass through untouched; everything
// else is retried with a fixed delay between attempts.
type RetryStore struct {
	inner    Store
	attempts int
	delay    time.Duration
	logger   zerolog.Logger
}

// NewRetryStore wraps the inner store. attempts is the total number of
// tries; values below 1 are treated as 1.
func NewRetryStore(inner Store, attempts int, delay time.Duration, logger zerolog.Logger) *RetryStore {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryStore{inner: inner, attempts: attempts, delay: delay, logger: logger}
}

func (s *RetryStore) retry(ctx context.Context, op string, call func() error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = call()
		if err == nil || errors.Is(err, ErrNoPoint) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == s.attempts {
			break
		}
		s.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("series store call failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return err
}

func (s *RetryStore) PointAt(ctx context.Context, key Key, date time.Time) (Point, error) {
	var point Point
	err := s.retry(ctx, "point_at", func() error {
		var callErr error
		point, callErr = s.inner.PointAt(ctx, key, date)
		return callErr
	})
	return point, err
}

func (s *RetryStore) PointsInRange(ctx context.Context, key Key, start, end time.Time) ([]Point, error) {
	var points []Point
	err := s.retry(ctx, "points_in_range", func() error {
		var callErr error
		points, callErr = s.inner.PointsInRange(ctx, key, start, end)
		return callErr
	})
	return points, err
}

func (s *RetryStore) NearestOnOrBefore(ctx context.Context, key Key, date time.Time) (Point, error) {
	var point Point
	err := s.retry(ctx, "nearest_on_or_before", func() error {
		var callErr error
		point, callErr = s.inner.NearestOnOrBefore(ctx, key, date)
		return callErr
	})
	return point, err
}

func (s *RetryStore) NearestAfter(ctx context.Context, key Key, date time.Time) (Point, error) {
	var point Point
	err := s.retry(ctx, "nearest_after", func() error {
		var callErr error
		point, callErr = s.inner.NearestAfter(ctx, key, date)
		return callErr
	})
	return point, err
}
