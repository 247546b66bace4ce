package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the preview engine.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Preview metrics
	ChangesApplied  *prometheus.CounterVec
	ChangesRejected *prometheus.CounterVec
	StateCaptures   prometheus.Counter
	TrackedElements prometheus.Gauge
	PreviewRemovals prometheus.Counter

	// Sandbox metrics
	ScriptExecutions *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "preview_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ChangesApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_changes_applied_total",
				Help: "DOM changes applied, by change type",
			},
			[]string{"type"},
		),
		ChangesRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_changes_rejected_total",
				Help: "DOM changes rejected before application, by reason",
			},
			[]string{"reason"},
		),
		StateCaptures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "preview_state_captures_total",
				Help: "Original element states captured",
			},
		),
		TrackedElements: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "preview_tracked_elements",
				Help: "Elements currently tracked for restoration",
			},
		),
		PreviewRemovals: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "preview_removals_total",
				Help: "Per-experiment preview removals performed",
			},
		),

		ScriptExecutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_script_executions_total",
				Help: "Sandboxed script executions, by outcome",
			},
			[]string{"status"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "preview_sessions_active",
				Help: "Active preview sessions",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "preview_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordChangeApplied records one applied change.
func (m *Metrics) RecordChangeApplied(changeType string) {
	m.ChangesApplied.WithLabelValues(changeType).Inc()
}

// RecordChangeRejected records a change rejected before application.
func (m *Metrics) RecordChangeRejected(reason string) {
	m.ChangesRejected.WithLabelValues(reason).Inc()
}

// RecordCapture records one original-state capture.
func (m *Metrics) RecordCapture() {
	m.StateCaptures.Inc()
}

// SetTrackedElements updates the tracked element gauge.
func (m *Metrics) SetTrackedElements(n int) {
	m.TrackedElements.Set(float64(n))
}

// RecordRemoval records a per-experiment removal.
func (m *Metrics) RecordRemoval() {
	m.PreviewRemovals.Inc()
}

// RecordScriptExecution records a sandbox execution outcome
// ("ok", "rejected", or "error").
func (m *Metrics) RecordScriptExecution(status string) {
	m.ScriptExecutions.WithLabelValues(status).Inc()
}

// SetActiveSessions updates the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.SessionsActive.Set(float64(n))
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
