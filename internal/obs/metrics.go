package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_operations_total",
			Help: "Total number of identity manager operations.",
		},
		[]string{"op", "entity", "outcome"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "identity_operation_duration_seconds",
			Help:    "Identity manager operation latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "entity"},
	)

	tokenIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_tokens_issued_total",
			Help: "Security tokens issued, by purpose.",
		},
		[]string{"purpose"},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(operationsTotal, operationDuration, tokenIssuedTotal)
}

// ObserveOperation records the outcome and duration of a facade operation.
func ObserveOperation(op, entity, outcome string, start time.Time) {
	operationsTotal.WithLabelValues(op, entity, outcome).Inc()
	operationDuration.WithLabelValues(op, entity).Observe(time.Since(start).Seconds())
}

// CountTokenIssued records issuance of one security token.
func CountTokenIssued(purpose string) {
	tokenIssuedTotal.WithLabelValues(purpose).Inc()
}
