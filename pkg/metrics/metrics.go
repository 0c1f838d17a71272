// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"time"

	"campus-coin-ledger/pkg/apperror"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeSuccess = "success"

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerOperations counts ledger operations by outcome (success or error code).
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Total ledger operations by operation and outcome.",
}, []string{"operation", "outcome"})

// LedgerOperationDuration tracks ledger operation latency.
var LedgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "ledger",
	Name:      "operation_duration_seconds",
	Help:      "Ledger operation latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationQueueDepth tracks messages waiting for a dispatch worker.
var NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Subsystem: "notification",
	Name:      "queue_depth",
	Help:      "Current number of notifications waiting in the dispatch queue.",
})

// NotificationsDropped counts notifications discarded because the queue was full.
var NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "notification",
	Name:      "dropped_total",
	Help:      "Total notifications dropped because the dispatch queue was full.",
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts served requests by route and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method, route and status.",
}, []string{"method", "route", "status"})

// HTTPRequestDuration tracks request latency by route.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// Outcome maps an operation error to a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return apperror.CodeInternal
}

// ObserveOperation records one ledger operation started at start.
func ObserveOperation(operation string, start time.Time, err error) {
	LedgerOperations.WithLabelValues(operation, Outcome(err)).Inc()
	LedgerOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
