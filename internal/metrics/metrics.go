package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry, so several
// servers (e.g. in tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	MutationsTotal   *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
	SeedImported     prometheus.Counter
	SeedRuns         *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marks_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marks_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MutationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marks_bookmark_mutations_total",
			Help: "Bookmark writes by operation and outcome.",
		}, []string{"op", "outcome"}),
		RateLimitedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "marks_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}),
		SeedImported: f.NewCounter(prometheus.CounterOpts{
			Name: "marks_seed_imported_total",
			Help: "Bookmarks created by the seed import.",
		}),
		SeedRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marks_seed_runs_total",
			Help: "Seed import runs by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Mutation records one write outcome. Safe on a nil receiver.
func (m *Metrics) Mutation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.MutationsTotal.WithLabelValues(op, outcome).Inc()
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
