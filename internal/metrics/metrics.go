// Package metrics provides Prometheus metrics collection for the memory
// engine, grounded in the teacher repo's pkg/observability.Metrics: a single
// struct holding per-concern CounterVec/HistogramVec/GaugeVec fields, a
// nil-receiver no-op path so callers never have to guard on whether metrics
// are enabled, and an http.Handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures Prometheus metrics collection.
type Config struct {
	// Enabled turns on metrics collection. When false, New returns a nil
	// *Metrics and every recording method becomes a no-op.
	Enabled bool
	// Namespace prefixes all metric names. Default: "memengine".
	Namespace string
}

// SetDefaults applies default values to c.
func (c *Config) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "memengine"
	}
}

// Metrics holds the memory engine's Prometheus instrumentation.
type Metrics struct {
	config   *Config
	registry *prometheus.Registry

	// STM metrics
	stmMessagesAdded *prometheus.CounterVec
	stmEvictions     *prometheus.CounterVec
	stmContextItems  *prometheus.GaugeVec
	stmPendingItems  *prometheus.GaugeVec

	// Session registry metrics
	sessionsStarted *prometheus.CounterVec
	sessionsStopped *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	serverCallDur   *prometheus.HistogramVec

	// Promotion metrics
	promotionRuns      *prometheus.CounterVec
	promotionPromoted  prometheus.Counter
	promotionSkipped   prometheus.Counter
	promotionFailed    prometheus.Counter
	promotionBatchDur  prometheus.Histogram
	promotionRemaining prometheus.Gauge

	// LTM metrics
	ltmPersists     *prometheus.CounterVec
	ltmPersistDur   *prometheus.HistogramVec
	ltmQueries      *prometheus.CounterVec
	ltmQueryDur     *prometheus.HistogramVec
	ltmQueryResults prometheus.Histogram
}

// New creates a Metrics instance from cfg. It returns (nil, nil) when cfg is
// nil or disabled; every method on a nil *Metrics is a safe no-op, so callers
// never need to branch on whether metrics collection is on.
func New(cfg *Config) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.initSTMMetrics()
	m.initSessionMetrics()
	m.initPromotionMetrics()
	m.initLTMMetrics()

	return m, nil
}

func (m *Metrics) initSTMMetrics() {
	m.stmMessagesAdded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "stm",
			Name:      "messages_added_total",
			Help:      "Total number of messages appended to conversation buffers",
		},
		[]string{"session_id"},
	)

	m.stmEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "stm",
			Name:      "evictions_total",
			Help:      "Total number of messages evicted from conversation buffers",
		},
		[]string{"session_id"},
	)

	m.stmContextItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "stm",
			Name:      "context_items",
			Help:      "Number of keys currently held in a session's working context",
		},
		[]string{"session_id"},
	)

	m.stmPendingItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "stm",
			Name:      "pending_items",
			Help:      "Number of items currently queued for promotion",
		},
		[]string{"session_id"},
	)

	m.registry.MustRegister(m.stmMessagesAdded, m.stmEvictions, m.stmContextItems, m.stmPendingItems)
}

func (m *Metrics) initSessionMetrics() {
	m.sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total number of STM server actors started",
		},
		[]string{"reason"},
	)

	m.sessionsStopped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "session",
			Name:      "stopped_total",
			Help:      "Total number of STM server actors stopped",
		},
		[]string{"reason"},
	)

	m.sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of currently registered session servers",
		},
	)

	m.serverCallDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "session",
			Name:      "call_duration_seconds",
			Help:      "Time a submit() call spent queued behind and executing on a session's actor goroutine",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to ~26s
		},
		[]string{"op"},
	)

	m.registry.MustRegister(m.sessionsStarted, m.sessionsStopped, m.sessionsActive, m.serverCallDur)
}

func (m *Metrics) initPromotionMetrics() {
	m.promotionRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "promotion",
			Name:      "runs_total",
			Help:      "Total number of promotion sweeps run",
		},
		[]string{"mode"},
	)

	m.promotionPromoted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "promotion",
			Name:      "promoted_total",
			Help:      "Total number of pending items promoted into long-term memory",
		},
	)

	m.promotionSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "promotion",
			Name:      "skipped_total",
			Help:      "Total number of pending items evaluated but not promoted",
		},
	)

	m.promotionFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "promotion",
			Name:      "failed_total",
			Help:      "Total number of pending items rejected or failed to persist during promotion",
		},
	)

	m.promotionBatchDur = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "promotion",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a single Promote() call",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)

	m.promotionRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "promotion",
			Name:      "remaining_last_run",
			Help:      "Number of items re-enqueued as Remaining by the most recent promotion run",
		},
	)

	m.registry.MustRegister(m.promotionRuns, m.promotionPromoted, m.promotionSkipped,
		m.promotionFailed, m.promotionBatchDur, m.promotionRemaining)
}

func (m *Metrics) initLTMMetrics() {
	m.ltmPersists = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "ltm",
			Name:      "persists_total",
			Help:      "Total number of memories persisted to the long-term store",
		},
		[]string{"graph", "status"},
	)

	m.ltmPersistDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "ltm",
			Name:      "persist_duration_seconds",
			Help:      "Duration of a single Persist() call",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"graph"},
	)

	m.ltmQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "ltm",
			Name:      "queries_total",
			Help:      "Total number of pattern queries evaluated against the long-term store",
		},
		[]string{"graph", "status"},
	)

	m.ltmQueryDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "ltm",
			Name:      "query_duration_seconds",
			Help:      "Duration of a single Query() call",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"graph"},
	)

	m.ltmQueryResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "ltm",
			Name:      "query_result_rows",
			Help:      "Number of rows returned by a query",
			Buckets:   prometheus.LinearBuckets(0, 5, 11),
		},
	)

	m.registry.MustRegister(m.ltmPersists, m.ltmPersistDur, m.ltmQueries, m.ltmQueryDur, m.ltmQueryResults)
}

// =============================================================================
// STM
// =============================================================================

// RecordMessageAdded records a message appended to sessionID's buffer.
func (m *Metrics) RecordMessageAdded(sessionID string) {
	if m == nil {
		return
	}
	m.stmMessagesAdded.WithLabelValues(sessionID).Inc()
}

// RecordEvictions records evictedCount messages dropped from sessionID's buffer.
func (m *Metrics) RecordEvictions(sessionID string, evictedCount int) {
	if m == nil || evictedCount == 0 {
		return
	}
	m.stmEvictions.WithLabelValues(sessionID).Add(float64(evictedCount))
}

// SetContextItems sets the current working-context key count for sessionID.
func (m *Metrics) SetContextItems(sessionID string, count int) {
	if m == nil {
		return
	}
	m.stmContextItems.WithLabelValues(sessionID).Set(float64(count))
}

// SetPendingItems sets the current pending-queue length for sessionID.
func (m *Metrics) SetPendingItems(sessionID string, count int) {
	if m == nil {
		return
	}
	m.stmPendingItems.WithLabelValues(sessionID).Set(float64(count))
}

// =============================================================================
// Session registry
// =============================================================================

// RecordSessionStarted records a new session server actor starting.
func (m *Metrics) RecordSessionStarted(reason string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(reason).Inc()
}

// RecordSessionStopped records a session server actor stopping.
func (m *Metrics) RecordSessionStopped(reason string) {
	if m == nil {
		return
	}
	m.sessionsStopped.WithLabelValues(reason).Inc()
}

// SetActiveSessions sets the number of currently registered session servers.
func (m *Metrics) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(count))
}

// RecordServerCall records how long a submit() call took for op.
func (m *Metrics) RecordServerCall(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.serverCallDur.WithLabelValues(op).Observe(duration.Seconds())
}

// =============================================================================
// Promotion
// =============================================================================

// RecordPromotionRun records one completed Promote() call's outcome.
func (m *Metrics) RecordPromotionRun(mode string, promoted, skipped, failed, remaining int, duration time.Duration) {
	if m == nil {
		return
	}
	m.promotionRuns.WithLabelValues(mode).Inc()
	m.promotionPromoted.Add(float64(promoted))
	m.promotionSkipped.Add(float64(skipped))
	m.promotionFailed.Add(float64(failed))
	m.promotionBatchDur.Observe(duration.Seconds())
	m.promotionRemaining.Set(float64(remaining))
}

// =============================================================================
// LTM
// =============================================================================

// RecordPersist records a Persist() call against graph.
func (m *Metrics) RecordPersist(graph string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.ltmPersists.WithLabelValues(graph, statusLabel(err)).Inc()
	m.ltmPersistDur.WithLabelValues(graph).Observe(duration.Seconds())
}

// RecordQuery records a Query() call against graph, returning resultCount rows.
func (m *Metrics) RecordQuery(graph string, duration time.Duration, resultCount int, err error) {
	if m == nil {
		return
	}
	m.ltmQueries.WithLabelValues(graph, statusLabel(err)).Inc()
	m.ltmQueryDur.WithLabelValues(graph).Observe(duration.Seconds())
	if err == nil {
		m.ltmQueryResults.Observe(float64(resultCount))
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// HTTP handler
// =============================================================================

// Handler returns an HTTP handler serving the Prometheus exposition format.
// On a nil *Metrics it returns a handler reporting 503, matching the
// teacher's own disabled-metrics behavior.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
