package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the presence tracker.
type Metrics struct {
	registry               *prometheus.Registry
	requestsTotal          prometheus.Counter
	connectsTotal          prometheus.Counter
	disconnectsTotal       prometheus.Counter
	reportsDispatchedTotal prometheus.Counter
	reportsSkippedTotal    prometheus.Counter
	sessionsSweptTotal     prometheus.Counter
	activeSessions         prometheus.Gauge
	errorsTotal            prometheus.Counter
}

// New creates and registers Prometheus metrics for the presence tracker.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "presence_requests_total",
		Help: "Total number of HTTP requests received",
	})
	connectsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "presence_connects_total",
		Help: "Total number of participant connect events accepted",
	})
	disconnectsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "presence_disconnects_total",
		Help: "Total number of participant disconnect events accepted",
	})
	reportsDispatchedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "presence_reports_dispatched_total",
		Help: "Total number of completion reports delivered to the gateway",
	})
	reportsSkippedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "presence_reports_skipped_total",
		Help: "Total number of completion reports skipped for degenerate sessions",
	})
	sessionsSweptTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "presence_sessions_swept_total",
		Help: "Total number of stale sessions removed by the sweeper",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "presence_active_sessions",
		Help: "Number of sessions currently tracked by the registry",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "presence_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		connectsTotal,
		disconnectsTotal,
		reportsDispatchedTotal,
		reportsSkippedTotal,
		sessionsSweptTotal,
		activeSessions,
		errorsTotal,
	)

	return &Metrics{
		registry:               registry,
		requestsTotal:          requestsTotal,
		connectsTotal:          connectsTotal,
		disconnectsTotal:       disconnectsTotal,
		reportsDispatchedTotal: reportsDispatchedTotal,
		reportsSkippedTotal:    reportsSkippedTotal,
		sessionsSweptTotal:     sessionsSweptTotal,
		activeSessions:         activeSessions,
		errorsTotal:            errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncConnects increments the accepted connect counter.
func (m *Metrics) IncConnects() {
	m.connectsTotal.Inc()
}

// IncDisconnects increments the accepted disconnect counter.
func (m *Metrics) IncDisconnects() {
	m.disconnectsTotal.Inc()
}

// IncReportsDispatched increments the delivered report counter.
func (m *Metrics) IncReportsDispatched() {
	m.reportsDispatchedTotal.Inc()
}

// IncReportsSkipped increments the skipped report counter.
func (m *Metrics) IncReportsSkipped() {
	m.reportsSkippedTotal.Inc()
}

// AddSessionsSwept adds n to the swept session counter.
func (m *Metrics) AddSessionsSwept(n int) {
	m.sessionsSweptTotal.Add(float64(n))
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
