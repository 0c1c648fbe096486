package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cpi_engine/config"
	"cpi_engine/series"
	"cpi_engine/telemetry"
)

func seriesPoint(t *testing.T, date, value string) series.Point {
	t.Helper()
	parsed, err := series.ParseDate(date)
	require.NoError(t, err)
	return series.Point{
		Date:     parsed,
		Value:    decimal.RequireFromString(value),
		SeriesID: "CPIAUCSL",
		Region:   "US",
	}
}

func defaultKey() series.Key {
	return series.Key{SeriesID: "CPIAUCSL", Region: "US"}
}

// countingStore records how many times each store operation is hit.
type countingStore struct {
	inner series.Store
	mu    sync.Mutex
	calls map[string]int
}

func newCountingStore(inner series.Store) *countingStore {
	return &countingStore{inner: inner, calls: make(map[string]int)}
}

func (c *countingStore) record(op string) {
	c.mu.Lock()
	c.calls[op]++
	c.mu.Unlock()
}

func (c *countingStore) count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *countingStore) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := 0
	for _, n := range c.calls {
		sum += n
	}
	return sum
}

func (c *countingStore) PointAt(ctx context.Context, key series.Key, date time.Time) (series.Point, error) {
	c.record("point_at")
	return c.inner.PointAt(ctx, key, date)
}

func (c *countingStore) PointsInRange(ctx context.Context, key series.Key, start, end time.Time) ([]series.Point, error) {
	c.record("points_in_range")
	return c.inner.PointsInRange(ctx, key, start, end)
}

func (c *countingStore) NearestOnOrBefore(ctx context.Context, key series.Key, date time.Time) (series.Point, error) {
	c.record("nearest_on_or_before")
	return c.inner.NearestOnOrBefore(ctx, key, date)
}

func (c *countingStore) NearestAfter(ctx context.Context, key series.Key, date time.Time) (series.Point, error) {
	c.record("nearest_after")
	return c.inner.NearestAfter(ctx, key, date)
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		CacheTTL:      config.Duration{Duration: time.Hour},
		FutureSlack:   config.Duration{Duration: 7 * 24 * time.Hour},
		FetchMargin:   config.Duration{Duration: 93 * 24 * time.Hour},
		DefaultSeries: "CPIAUCSL",
		DefaultRegion: "US",
		MaxBatchSize:  50,
	}
}

// newTestEngine builds an engine over a counting store with a fake clock
// pinned to mid-2024.
func newTestEngine(t *testing.T, points []series.Point) (*Engine, *countingStore, *fakeClock) {
	t.Helper()
	counting := newCountingStore(series.NewMemoryStore(points))
	clock := newFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	eng := New(counting, testEngineConfig(), zerolog.Nop(), telemetry.Noop(), WithClock(clock.Now))
	return eng, counting, clock
}

func newTestResolver(points []series.Point) (*resolver, *countingStore, *fakeClock) {
	counting := newCountingStore(series.NewMemoryStore(points))
	clock := newFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	r := &resolver{
		store:     counting,
		cache:     NewTTLCache(time.Hour, clock.Now),
		collector: telemetry.Noop(),
		logger:    zerolog.Nop(),
	}
	return r, counting, clock
}
