package telemetry

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "settlement"

// PrometheusMetrics owns the registry scraped at /metrics. It carries the Go
// runtime, process and connection pool collectors and a few settlement counters
// that operators alert on.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	allocations  *prometheus.CounterVec
	rateSyncRuns *prometheus.CounterVec
	lastRateSync prometheus.Gauge
	reports      *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a registry. db may be nil, in which case no pool
// statistics are exported.
func NewPrometheusMetrics(db *sql.DB, dbName string) (*PrometheusMetrics, error) {
	reg := prometheus.NewRegistry()
	p := &PrometheusMetrics{
		registry: reg,
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "allocations_total",
			Help:      "Allocation and reversal calls by operation and result.",
		}, []string{"operation", "result"}),
		rateSyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "rate_sync_runs_total",
			Help:      "Exchange rate synchronization runs by outcome.",
		}, []string{"outcome"}),
		lastRateSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "rate_sync_last_success_timestamp_seconds",
			Help:      "Unix time of the last run that left the day Synced.",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "reports_total",
			Help:      "Balance reports by format and result.",
		}, []string{"format", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: promNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   HTTPDurationBuckets,
		}, []string{"route", "method"}),
	}

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.allocations,
		p.rateSyncRuns,
		p.lastRateSync,
		p.reports,
		p.httpRequests,
		p.httpDuration,
	}
	if db != nil {
		cs = append(cs, collectors.NewDBStatsCollector(db, dbName))
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, &MetricsError{Op: "NewPrometheusMetrics", Err: err.Error()}
		}
	}
	return p, nil
}

// Handler serves the registry in the Prometheus exposition format
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveHTTP records one served request
func (p *PrometheusMetrics) ObserveHTTP(route, method, status string, seconds float64) {
	p.httpRequests.WithLabelValues(route, method, status).Inc()
	p.httpDuration.WithLabelValues(route, method).Observe(seconds)
}
