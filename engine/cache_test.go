package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testCacheKey(date time.Time, policy Policy) CacheKey {
	return CacheKey{SeriesID: "CPIAUCSL", Region: "US", Date: date, Policy: policy}
}

func TestTTLCacheExpiresLazily(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	cache := NewTTLCache(time.Hour, clock.Now)
	key := testCacheKey(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), PolicyExactDate)

	cache.Put(key, decimal.RequireFromString("256.974"))

	value, ok := cache.Get(key)
	require.True(t, ok)
	require.True(t, value.Equal(decimal.RequireFromString("256.974")))

	clock.Advance(59 * time.Minute)
	_, ok = cache.Get(key)
	require.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = cache.Get(key)
	require.False(t, ok)
	require.Equal(t, 0, cache.Len(), "expired entry must be evicted on read")
}

func TestTTLCacheLastWriteWins(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	cache := NewTTLCache(time.Hour, clock.Now)
	key := testCacheKey(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), PolicyExactDate)

	cache.Put(key, decimal.RequireFromString("100"))
	cache.Put(key, decimal.RequireFromString("200"))

	value, ok := cache.Get(key)
	require.True(t, ok)
	require.True(t, value.Equal(decimal.RequireFromString("200")))
	require.Equal(t, 1, cache.Len())
}

func TestTTLCacheKeyIncludesPolicy(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	cache := NewTTLCache(time.Hour, clock.Now)
	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	cache.Put(testCacheKey(date, PolicyExactDate), decimal.RequireFromString("100"))

	_, ok := cache.Get(testCacheKey(date, PolicyInterpolated))
	require.False(t, ok)
}

func TestTTLCacheClear(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	cache := NewTTLCache(time.Hour, clock.Now)

	cache.Put(testCacheKey(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), PolicyExactDate), decimal.RequireFromString("100"))
	cache.Put(testCacheKey(time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), PolicyExactDate), decimal.RequireFromString("101"))
	require.Equal(t, 2, cache.Len())

	cache.Clear()
	require.Equal(t, 0, cache.Len())
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	cache := NewTTLCache(time.Hour, clock.Now)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			date := time.Date(2020, time.Month(n%12+1), 1, 0, 0, 0, 0, time.UTC)
			key := testCacheKey(date, PolicyExactDate)
			for j := 0; j < 100; j++ {
				cache.Put(key, decimal.NewFromInt(int64(j)))
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 12, cache.Len())
}
