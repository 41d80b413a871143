package statementshttp

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheMetricsMu          sync.Mutex
	cacheMetricsInitialized bool

	cacheHitCounter   *prometheus.CounterVec
	cacheMissCounter  *prometheus.CounterVec
	generateHistogram *prometheus.HistogramVec
	cacheMetricsError error
)

// SetupCacheMetrics registers the Prometheus collectors observing the
// statement response cache. Registration happens once; later calls return the
// first outcome.
func SetupCacheMetrics(reg prometheus.Registerer) error {
	cacheMetricsMu.Lock()
	defer cacheMetricsMu.Unlock()
	if cacheMetricsInitialized {
		return cacheMetricsError
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cacheHitCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_statements_cache_hits_total",
		Help: "Number of cache hits for generated statements.",
	}, []string{"statement", "company", "period"})
	cacheMissCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_statements_cache_miss_total",
		Help: "Number of cache misses for generated statements.",
	}, []string{"statement", "company", "period"})
	generateHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_statements_generate_duration_seconds",
		Help:    "Duration of statement generation on cache misses.",
		Buckets: prometheus.DefBuckets,
	}, []string{"statement", "company", "period"})

	for _, collector := range []prometheus.Collector{cacheHitCounter, cacheMissCounter, generateHistogram} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				switch c := already.ExistingCollector.(type) {
				case *prometheus.CounterVec:
					if collector == cacheHitCounter {
						cacheHitCounter = c
					} else {
						cacheMissCounter = c
					}
				case *prometheus.HistogramVec:
					generateHistogram = c
				default:
					cacheMetricsError = fmt.Errorf("statement cache metrics: unexpected collector type %T", c)
				}
				continue
			}
			cacheMetricsError = err
			cacheHitCounter = nil
			cacheMissCounter = nil
			generateHistogram = nil
			cacheMetricsInitialized = true
			return cacheMetricsError
		}
	}

	cacheMetricsInitialized = true
	return cacheMetricsError
}

func recordCacheHit(statement string, companyID int64, period string) {
	if cacheHitCounter == nil {
		return
	}
	cacheHitCounter.WithLabelValues(statement, strconv.FormatInt(companyID, 10), period).Inc()
}

func recordCacheMiss(statement string, companyID int64, period string) {
	if cacheMissCounter == nil {
		return
	}
	cacheMissCounter.WithLabelValues(statement, strconv.FormatInt(companyID, 10), period).Inc()
}

func observeGenerateDuration(statement string, companyID int64, period string, duration time.Duration) {
	if generateHistogram == nil {
		return
	}
	generateHistogram.WithLabelValues(statement, strconv.FormatInt(companyID, 10), period).Observe(duration.Seconds())
}
