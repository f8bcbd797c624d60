package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timetrack"

var (
	// PolicyDecisionsTotal counts authorization decisions by policy, result and reason.
	PolicyDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_decisions_total",
			Help:      "Total number of policy decisions.",
		},
		[]string{"policy", "result", "reason"},
	)

	// SyncOperationsTotal counts hierarchy synchronization steps by outcome.
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hierarchy_sync_operations_total",
			Help:      "Total number of hierarchy synchronization operations.",
		},
		[]string{"operation", "outcome"},
	)

	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hierarchy_reconcile_runs_total",
			Help:      "Total number of reconciliation passes.",
		},
		[]string{"outcome"},
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hierarchy_reconcile_duration_seconds",
			Help:      "Duration of reconciliation passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func RecordDecision(policyName string, allowed bool, reason string) {
	result := "allow"
	if !allowed {
		result = "deny"
	}
	PolicyDecisionsTotal.WithLabelValues(policyName, result, reason).Inc()
}

func RecordSync(operation, outcome string) {
	SyncOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
