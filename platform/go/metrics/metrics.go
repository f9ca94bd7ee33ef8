package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

// CacheMetrics implements cache.Stats over Prometheus counters.
type CacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

// NewCacheMetrics registers the cache collectors on the given registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	factory := promauto.With(reg)
	return &CacheMetrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trimly",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trimly",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trimly",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of entries evicted by expiry sweep or size cap.",
		}),
	}
}

func (m *CacheMetrics) Hit()      { m.hits.Inc() }
func (m *CacheMetrics) Miss()     { m.misses.Inc() }
func (m *CacheMetrics) Eviction() { m.evictions.Inc() }

// QuotaMetrics implements plan.GuardStats over Prometheus counters.
// The fail_open result deserves an alert rule: a sustained quota service
// outage effectively disables enforcement.
type QuotaMetrics struct {
	decisions *prometheus.CounterVec
}

// NewQuotaMetrics registers the quota collectors on the given registerer.
func NewQuotaMetrics(reg prometheus.Registerer) *QuotaMetrics {
	factory := promauto.With(reg)
	return &QuotaMetrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trimly",
			Subsystem: "quota",
			Name:      "decisions_total",
			Help:      "Quota guard decisions by feature and result.",
		}, []string{"feature", "result"}), // result: allowed, denied, fail_open
	}
}

func (m *QuotaMetrics) Allowed(feature plan.Feature) {
	m.decisions.WithLabelValues(string(feature), "allowed").Inc()
}

func (m *QuotaMetrics) Denied(feature plan.Feature) {
	m.decisions.WithLabelValues(string(feature), "denied").Inc()
}

func (m *QuotaMetrics) FailOpen(feature plan.Feature) {
	m.decisions.WithLabelValues(string(feature), "fail_open").Inc()
}
