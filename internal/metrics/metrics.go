// Package metrics exposes ledger, registry, QR and HTTP counters in the
// Prometheus text format. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	transactions  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	qrRenders     *prometheus.CounterVec
	qrQueue       prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them, along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "armory",
			Name:      "ledger_transactions_total",
			Help:      "Take/Return requests by action and outcome kind.",
		}, []string{"action", "outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "armory",
			Name:      "registry_registrations_total",
			Help:      "Personnel and item registrations by kind and outcome kind.",
		}, []string{"kind", "outcome"}),
		qrRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "armory",
			Name:      "qr_renders_total",
			Help:      "QR image renders by outcome.",
		}, []string{"outcome"}),
		qrQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "armory",
			Name:      "qr_queue_depth",
			Help:      "Registration events waiting for a QR worker.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "armory",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "armory",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transactions,
		m.registrations,
		m.qrRenders,
		m.qrQueue,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Transaction counts a recordTransaction outcome. outcome is "ok" or an error kind.
func (m *Metrics) Transaction(action, outcome string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(action, outcome).Inc()
}

// Registration counts a registration outcome.
func (m *Metrics) Registration(kind, outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(kind, outcome).Inc()
}

// QRRender counts a render outcome.
func (m *Metrics) QRRender(outcome string) {
	if m == nil {
		return
	}
	m.qrRenders.WithLabelValues(outcome).Inc()
}

// QRQueueDepth sets the number of queued render events.
func (m *Metrics) QRQueueDepth(n int) {
	if m == nil {
		return
	}
	m.qrQueue.Set(float64(n))
}

// HTTPRequest records a served request. route is the matched pattern, not the raw path.
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
