package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the EasyScale API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	commandViews    prometheus.Counter
	commandCopies   prometheus.Counter
	logins          *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "easyscale_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyscale_backend_errors_total",
				Help: "Total errors from the Supabase backend.",
			},
			[]string{"table"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyscale_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyscale_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		commandViews: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "easyscale_command_views_total",
				Help: "Total command views registered through the API.",
			},
		),
		commandCopies: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "easyscale_command_copies_total",
				Help: "Total command prompt copies registered through the API.",
			},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyscale_logins_total",
				Help: "Total login attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrBackendError increments the backend error counter for a table.
func (m *Metrics) IncrBackendError(table string) {
	m.backendErrors.WithLabelValues(table).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCommandView increments the global view counter.
func (m *Metrics) IncrCommandView() {
	m.commandViews.Inc()
}

// IncrCommandCopy increments the global copy counter.
func (m *Metrics) IncrCommandCopy() {
	m.commandCopies.Inc()
}

// IncrLogin increments the login counter with an outcome label
// ("success", "invalid_credentials", "blocked", "error").
func (m *Metrics) IncrLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// CounterSnapshot reports the process-lifetime view/copy totals. The report
// overview exposes them alongside the persisted table counters.
func (m *Metrics) CounterSnapshot() (views, copies float64) {
	return getCounterValue(m.commandViews), getCounterValue(m.commandCopies)
}

// getCounterValue extracts the current float64 value from a Counter.
func getCounterValue(counter prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		return 0
	}
	if metric.Counter != nil && metric.Counter.Value != nil {
		return *metric.Counter.Value
	}
	return 0
}
