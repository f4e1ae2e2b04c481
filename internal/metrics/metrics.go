package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for FundChain
type Metrics struct {
	// Action counters
	ActionsTotal        *prometheus.CounterVec
	ActionSettleSeconds *prometheus.HistogramVec
	ActionsInFlight     prometheus.Gauge
	LedgerReadsTotal    *prometheus.CounterVec

	// Sessions and event feed
	SessionsActive prometheus.Gauge
	EventsClients  prometheus.Gauge

	// Journal gauges
	JournalEntries *prometheus.GaugeVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	StorageUsedBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundchain_actions_total",
				Help: "Total number of campaign actions by outcome",
			},
			[]string{"action", "outcome"},
		),
		ActionSettleSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundchain_action_settle_seconds",
				Help:    "Time from submission to settlement of a ledger write",
				Buckets: []float64{.5, 1, 2, 5, 10, 15, 30, 60, 120, 300},
			},
			[]string{"action"},
		),
		ActionsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundchain_actions_in_flight",
				Help: "Number of submitted writes waiting to settle",
			},
		),
		LedgerReadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundchain_ledger_reads_total",
				Help: "Total number of contract read calls",
			},
			[]string{"op", "result"},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundchain_sessions_active",
				Help: "Number of connected signing sessions",
			},
		),
		EventsClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundchain_events_clients",
				Help: "Number of connected event feed clients",
			},
		),

		JournalEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fundchain_journal_entries",
				Help: "Number of journal entries by status",
			},
			[]string{"status"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundchain_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundchain_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundchain_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundchain_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundchain_goroutines",
				Help: "Number of active goroutines",
			},
		),
		StorageUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundchain_storage_used_bytes",
				Help: "Journal database file size in bytes",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.ActionsTotal,
		m.ActionSettleSeconds,
		m.ActionsInFlight,
		m.LedgerReadsTotal,
		m.SessionsActive,
		m.EventsClients,
		m.JournalEntries,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
		m.StorageUsedBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncActions counts a finished action attempt
func IncActions(action, outcome string) {
	m := Global()
	if m != nil {
		m.ActionsTotal.WithLabelValues(action, outcome).Inc()
	}
}

// ObserveSettle records how long a write took to settle
func ObserveSettle(action string, seconds float64) {
	m := Global()
	if m != nil {
		m.ActionSettleSeconds.WithLabelValues(action).Observe(seconds)
	}
}

// IncInFlight increments the in-flight writes gauge
func IncInFlight() {
	m := Global()
	if m != nil {
		m.ActionsInFlight.Inc()
	}
}

// DecInFlight decrements the in-flight writes gauge
func DecInFlight() {
	m := Global()
	if m != nil {
		m.ActionsInFlight.Dec()
	}
}

// IncLedgerReads counts a contract read call
func IncLedgerReads(op, result string) {
	m := Global()
	if m != nil {
		m.LedgerReadsTotal.WithLabelValues(op, result).Inc()
	}
}

// SetSessionsActive sets the connected sessions gauge
func SetSessionsActive(n int) {
	m := Global()
	if m != nil {
		m.SessionsActive.Set(float64(n))
	}
}

// SetEventsClients sets the event feed clients gauge
func SetEventsClients(n int) {
	m := Global()
	if m != nil {
		m.EventsClients.Set(float64(n))
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
