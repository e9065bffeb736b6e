package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Generation metrics
	PasswordsGenerated prometheus.Counter
	GenerationErrors   *prometheus.CounterVec
	PasswordLength     prometheus.Histogram

	// History metrics
	HistoryOperations *prometheus.CounterVec
	HistoryErrors     *prometheus.CounterVec
	HistoryEntries    prometheus.Gauge

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsExpired prometheus.Counter

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec

	// Archive metrics
	ArchiveRuns          *prometheus.CounterVec
	ArchiveDuration      prometheus.Histogram
	ArchiveLastTimestamp prometheus.Gauge
}

// New creates all metrics and registers them, together with the Go runtime
// and process collectors, on reg.
func New(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		PasswordsGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "passify_passwords_generated_total",
				Help: "Total number of passwords generated",
			},
		),

		GenerationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passify_generation_errors_total",
				Help: "Total number of rejected generation requests by reason",
			},
			[]string{"reason"}, // no_character_types, length_too_short, length_out_of_range, invalid_form, internal
		),

		PasswordLength: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "passify_password_length",
				Help:    "Length of generated passwords",
				Buckets: []float64{4, 8, 12, 16, 20, 24, 32, 48, 64},
			},
		),

		HistoryOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passify_history_operations_total",
				Help: "Total number of history operations by type",
			},
			[]string{"operation"}, // save, list, export, clear
		),

		HistoryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passify_history_errors_total",
				Help: "Total number of failed history operations by type",
			},
			[]string{"operation"},
		),

		HistoryEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "passify_history_entries",
				Help: "Number of entries in the password history as of the last listing",
			},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "passify_sessions_active",
				Help: "Number of sessions held in the session cache",
			},
		),

		SessionsExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "passify_sessions_expired_total",
				Help: "Total number of sessions removed by the expiry worker",
			},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "passify_http_request_duration_seconds",
				Help:    "HTTP request latency by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),

		ArchiveRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passify_archive_runs_total",
				Help: "Total number of history archive runs by status",
			},
			[]string{"status"}, // committed, unchanged, failed
		),

		ArchiveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "passify_archive_duration_seconds",
				Help:    "Duration of history archive runs",
				Buckets: prometheus.DefBuckets,
			},
		),

		ArchiveLastTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "passify_archive_last_timestamp",
				Help: "Timestamp of the last successful archive commit",
			},
		),
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordGeneration records a generated password
func (m *Metrics) RecordGeneration(length int) {
	m.PasswordsGenerated.Inc()
	m.PasswordLength.Observe(float64(length))
}

// RecordGenerationError records a rejected generation request
func (m *Metrics) RecordGenerationError(reason string) {
	m.GenerationErrors.WithLabelValues(reason).Inc()
}

// RecordHistoryOperation records a history operation and its outcome
func (m *Metrics) RecordHistoryOperation(operation string, err error) {
	m.HistoryOperations.WithLabelValues(operation).Inc()
	if err != nil {
		m.HistoryErrors.WithLabelValues(operation).Inc()
	}
}

// UpdateHistoryEntries updates the history size gauge
func (m *Metrics) UpdateHistoryEntries(count int) {
	m.HistoryEntries.Set(float64(count))
}

// UpdateActiveSessions updates the session gauge
func (m *Metrics) UpdateActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionsExpired records sessions dropped by the expiry worker
func (m *Metrics) RecordSessionsExpired(count int) {
	m.SessionsExpired.Add(float64(count))
}

// RecordRequest records the latency of an HTTP request
func (m *Metrics) RecordRequest(route, method string, seconds float64) {
	m.RequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordArchive records an archive run
func (m *Metrics) RecordArchive(status string, duration float64) {
	m.ArchiveRuns.WithLabelValues(status).Inc()
	m.ArchiveDuration.Observe(duration)

	if status == "committed" {
		m.ArchiveLastTimestamp.SetToCurrentTime()
	}
}
