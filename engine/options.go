package engine

import "time"

// Option customizes an Engine at construction time.
type Option func(*Engine)

// WithCache replaces the default in-memory TTL cache, for example with a
// distributed implementation. The engine takes ownership of the cache.
func WithCache(cache Cache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithClock overrides the engine's time source. Used by tests and by
// callers that need deterministic calculation timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
