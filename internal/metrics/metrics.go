package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	EngineRequestsTotal   *prometheus.CounterVec
	EngineRequestDuration *prometheus.HistogramVec
	IngestRecordsTotal    *prometheus.CounterVec
	HTTPRequestsTotal     *prometheus.CounterVec
}

// New registers all collectors on reg; a nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		EngineRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditlens_engine_requests_total",
				Help: "Search engine calls by index, operation and outcome",
			},
			[]string{"index", "operation", "outcome"},
		),
		EngineRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditlens_engine_request_duration_seconds",
				Help:    "Search engine call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"index", "operation"},
		),
		IngestRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditlens_ingest_records_total",
				Help: "Audit records received for indexing by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditlens_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(
		m.EngineRequestsTotal,
		m.EngineRequestDuration,
		m.IngestRecordsTotal,
		m.HTTPRequestsTotal,
	)
	return m
}

// ObserveEngine records one engine call. Safe on a nil receiver.
func (m *Metrics) ObserveEngine(index, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EngineRequestsTotal.WithLabelValues(index, operation, outcome).Inc()
	m.EngineRequestDuration.WithLabelValues(index, operation).Observe(time.Since(start).Seconds())
}

// ObserveIngest counts n records of kind. Safe on a nil receiver.
func (m *Metrics) ObserveIngest(kind, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.IngestRecordsTotal.WithLabelValues(kind, outcome).Add(float64(n))
}

// ObserveHTTP counts one served request. Safe on a nil receiver.
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
