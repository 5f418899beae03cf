// Package metrics holds the Prometheus collectors for the escrow subsystem.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coinescrow"

var (
	// LedgerEntriesTotal counts appended ledger entries by type.
	LedgerEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Ledger entries appended, by entry type.",
		},
		[]string{"type"},
	)

	// EscrowTransitionsTotal counts escrows entering a status.
	EscrowTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escrow_transitions_total",
			Help:      "Escrow status transitions, by new status.",
		},
		[]string{"status"},
	)

	// DealConfirmationsTotal counts confirmDeal outcomes.
	DealConfirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deal_confirmations_total",
			Help:      "Deal confirmation calls, by result.",
		},
		[]string{"result"},
	)

	// LockTimeoutsTotal counts operations aborted by lock_timeout.
	LockTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_timeouts_total",
			Help:      "Operations that gave up waiting on a row lock.",
		},
		[]string{"op"},
	)

	// OperationDuration observes service operation latency.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	// HTTPRequestsTotal counts HTTP requests by route pattern and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes HTTP latency by route pattern.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		LedgerEntriesTotal,
		EscrowTransitionsTotal,
		DealConfirmationsTotal,
		LockTimeoutsTotal,
		OperationDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ObserveOp starts timing op. Call the returned func with the operation's
// final error; lock timeouts are counted separately.
func ObserveOp(op string) func(err error) {
	start := time.Now()

	return func(err error) {
		OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

		if errors.Is(err, domain.ErrLockTimeout) {
			LockTimeoutsTotal.WithLabelValues(op).Inc()
		}
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
