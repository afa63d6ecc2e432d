package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Tab metrics
	TabsOpen   prometheus.Gauge
	TabsOpened prometheus.Counter
	TabsClosed prometheus.Counter

	// Mutation metrics
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	QueueDepth       prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector backed by its own registry, so
// multiple instances (tests included) never fight over global registration.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		TabsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_tabs_open",
				Help: "Number of currently open tabs",
			},
		),
		TabsOpened: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_tabs_opened_total",
				Help: "Total number of tabs opened",
			},
		),
		TabsClosed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_tabs_closed_total",
				Help: "Total number of tabs closed",
			},
		),

		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_mutations_total",
				Help: "Total registry mutations by operation and status",
			},
			[]string{"op", "status"},
		),
		MutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_mutation_duration_seconds",
				Help:    "Registry mutation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_mutation_queue_depth",
				Help: "Number of mutations waiting on the scheduler",
			},
		),

		WSConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),

		Uptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.TabsOpen,
		m.TabsOpened,
		m.TabsClosed,
		m.Mutations,
		m.MutationDuration,
		m.QueueDepth,
		m.WSConnections,
		m.Uptime,
		collectors.NewGoCollector(),
	)

	return m
}

// Registry exposes the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordMutation records a completed registry mutation.
func (m *Metrics) RecordMutation(op, status string, duration time.Duration) {
	m.Mutations.WithLabelValues(op, status).Inc()
	m.MutationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetOpenTabs updates the open-tab gauge.
func (m *Metrics) SetOpenTabs(n int) {
	m.TabsOpen.Set(float64(n))
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
