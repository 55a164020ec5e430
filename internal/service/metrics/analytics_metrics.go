package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Endpoints tracks latency and error counts of the analytics HTTP endpoints.
type Endpoints struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
	cache   *prometheus.CounterVec
}

func NewEndpoints(reg prometheus.Registerer) *Endpoints {
	f := promauto.With(reg)
	return &Endpoints{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "idxlens",
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "Latency of analytics endpoints",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "idxlens",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Errors by analytics endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "idxlens",
				Subsystem: "api",
				Name:      "cache_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"endpoint", "result"},
		),
	}
}

// Observe records one request; status is only used for failures.
func (m *Endpoints) Observe(endpoint string, d time.Duration, status string, failed bool) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(endpoint).Observe(d.Seconds())
	if failed {
		m.errors.WithLabelValues(endpoint, status).Inc()
	}
}

// CacheResult records a cache hit or miss.
func (m *Endpoints) CacheResult(endpoint string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(endpoint, result).Inc()
}
