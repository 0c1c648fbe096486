package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// CacheKey identifies one resolved index value. Month-scoped policies use
// the first of the month as the date; day-sensitive policies keep day
// granularity.
type CacheKey struct {
	SeriesID string
	Region   string
	Date     time.Time
	Policy   Policy
}

// Cache is the read-through projection consulted before the series store.
// It holds no authority and may be dropped at any time without correctness
// loss. Implementations must be safe for concurrent use; the engine never
// wraps calls in additional locking. It can be swapped for a distributed
// implementation without touching calculation logic.
type Cache interface {
	Get(key CacheKey) (decimal.Decimal, bool)
	Put(key CacheKey, value decimal.Decimal)
	Clear()
	Len() int
}

type cacheEntry struct {
	value      decimal.Decimal
	insertedAt time.Time
}

// TTLCache is the default in-memory Cache. Entries expire a fixed TTL after
// insertion; expiry is checked lazily on read, there is no background
// sweep. Writes to the same key are last-write-wins.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[CacheKey]cacheEntry
}

// NewTTLCache builds a cache with the given entry lifetime. A nil clock
// defaults to time.Now.
func NewTTLCache(ttl time.Duration, now func() time.Time) *TTLCache {
	if now == nil {
		now = time.Now
	}
	return &TTLCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[CacheKey]cacheEntry),
	}
}

func (c *TTLCache) Get(key CacheKey) (decimal.Decimal, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return decimal.Zero, false
	}
	if c.now().Sub(entry.insertedAt) > c.ttl {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.insertedAt.Equal(entry.insertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return decimal.Zero, false
	}
	return entry.value, true
}

func (c *TTLCache) Put(key CacheKey, value decimal.Decimal) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, insertedAt: c.now()}
	c.mu.Unlock()
}

func (c *TTLCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[CacheKey]cacheEntry)
	c.mu.Unlock()
}

func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
