package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the calculation engine.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with the resolution and calculation paths.
type Collector interface {
	IncCacheHit(policy string)
	IncCacheMiss(policy string)
	IncStoreQuery(op string)
	IncCalculation(status string)
	ObserveBatch(total, failed int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncCacheHit(string)    {}
func (noopCollector) IncCacheMiss(string)   {}
func (noopCollector) IncStoreQuery(string)  {}
func (noopCollector) IncCalculation(string) {}
func (noopCollector) ObserveBatch(int, int) {}

// PrometheusCollector exposes engine counters via Prometheus.
type PrometheusCollector struct {
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	storeQueries *prometheus.CounterVec
	calculations *prometheus.CounterVec
	batchSlots   *prometheus.CounterVec
}

var (
	registryMu        sync.Mutex
	cacheHitCounter   *prometheus.CounterVec
	cacheMissCounter  *prometheus.CounterVec
	storeQueryCounter *prometheus.CounterVec
	calcCounter       *prometheus.CounterVec
	batchSlotCounter  *prometheus.CounterVec
)

func registerCounterVec(reg prometheus.Registerer, cached **prometheus.CounterVec, name, help string, labels []string) error {
	if *cached != nil {
		return nil
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				*cached = existing
				return nil
			}
		}
		return err
	}
	*cached = counter
	return nil
}

// NewPrometheusCollector registers the required metrics with the provided registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	registryMu.Lock()
	defer registryMu.Unlock()

	if err := registerCounterVec(reg, &cacheHitCounter,
		"cpi_engine_cache_hits_total",
		"Number of index resolutions answered from the cache, per policy.",
		[]string{"policy"}); err != nil {
		return nil, err
	}
	if err := registerCounterVec(reg, &cacheMissCounter,
		"cpi_engine_cache_misses_total",
		"Number of index resolutions that fell through to the series store, per policy.",
		[]string{"policy"}); err != nil {
		return nil, err
	}
	if err := registerCounterVec(reg, &storeQueryCounter,
		"cpi_engine_store_queries_total",
		"Number of series store queries issued, per operation.",
		[]string{"op"}); err != nil {
		return nil, err
	}
	if err := registerCounterVec(reg, &calcCounter,
		"cpi_engine_calculations_total",
		"Number of adjustment calculations, per outcome status.",
		[]string{"status"}); err != nil {
		return nil, err
	}
	if err := registerCounterVec(reg, &batchSlotCounter,
		"cpi_engine_batch_slots_total",
		"Number of batch request slots processed, per outcome.",
		[]string{"outcome"}); err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		cacheHits:    cacheHitCounter,
		cacheMisses:  cacheMissCounter,
		storeQueries: storeQueryCounter,
		calculations: calcCounter,
		batchSlots:   batchSlotCounter,
	}, nil
}

// IncCacheHit increments the cache hit counter for a policy.
func (p *PrometheusCollector) IncCacheHit(policy string) {
	if p == nil || p.cacheHits == nil {
		return
	}
	p.cacheHits.WithLabelValues(policy).Inc()
}

// IncCacheMiss increments the cache miss counter for a policy.
func (p *PrometheusCollector) IncCacheMiss(policy string) {
	if p == nil || p.cacheMisses == nil {
		return
	}
	p.cacheMisses.WithLabelValues(policy).Inc()
}

// IncStoreQuery records one series store query.
func (p *PrometheusCollector) IncStoreQuery(op string) {
	if p == nil || p.storeQueries == nil {
		return
	}
	p.storeQueries.WithLabelValues(op).Inc()
}

// IncCalculation records one calculation outcome.
func (p *PrometheusCollector) IncCalculation(status string) {
	if p == nil || p.calculations == nil {
		return
	}
	p.calculations.WithLabelValues(status).Inc()
}

// ObserveBatch records the slot outcomes of one batch.
func (p *PrometheusCollector) ObserveBatch(total, failed int) {
	if p == nil || p.batchSlots == nil {
		return
	}
	if succeeded := total - failed; succeeded > 0 {
		p.batchSlots.WithLabelValues("ok").Add(float64(succeeded))
	}
	if failed > 0 {
		p.batchSlots.WithLabelValues("failed").Add(float64(failed))
	}
}
