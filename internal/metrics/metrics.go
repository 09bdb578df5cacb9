// Package metrics holds the Prometheus collectors exported by tabular.
//
// All collectors are registered with the default registry through promauto.
// Label values are fixed sets so cardinality stays bounded, except the
// table label which is bounded by the number of registered models.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Statement status labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Cache result labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Write-back status labels.
const (
	WriteBackEnqueued = "enqueued"
	WriteBackWritten  = "written"
	WriteBackRetried  = "retried"
	WriteBackDropped  = "dropped"
)

var (
	// StatementsTotal counts statements sent to the database by kind and outcome.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabular_statements_total",
			Help: "Total number of statements executed",
		},
		[]string{"kind", "status"},
	)

	// StatementDuration observes database round-trip latency.
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabular_statement_duration_seconds",
			Help:    "Statement execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// RowsMaterialized counts rows appended to model storage.
	RowsMaterialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabular_rows_materialized_total",
			Help: "Total number of rows materialized into column storage",
		},
		[]string{"table"},
	)

	// CacheRequests counts result cache lookups.
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabular_cache_requests_total",
			Help: "Result cache lookups by result",
		},
		[]string{"result"},
	)

	// WriteBackOperations counts write-back operations by lifecycle step.
	WriteBackOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabular_writeback_operations_total",
			Help: "Write-back operations by status",
		},
		[]string{"status"},
	)

	// WriteBackQueueDepth is the last observed write-back queue size.
	WriteBackQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabular_writeback_queue_depth",
			Help: "Current number of pending write-back operations",
		},
	)
)

// ObserveStatement records one statement execution.
func ObserveStatement(kind string, start time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	StatementsTotal.WithLabelValues(kind, status).Inc()
	StatementDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
