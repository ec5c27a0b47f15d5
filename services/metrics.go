// services/metrics.go
package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "bounty_review"

var (
	paymentsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payments_dispatched_total",
			Help:      "Payment dispatch attempts by result (sent or failure cause).",
		},
		[]string{"result"},
	)

	confirmationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "confirmation_outcomes_total",
			Help:      "Terminal results of transaction confirmation polling.",
		},
		[]string{"outcome"},
	)

	confirmationAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "confirmation_poll_attempts",
			Help:      "Status queries needed before a confirmation poll ended.",
			Buckets:   []float64{1, 2, 3, 5, 8, 10, 15, 20},
		},
	)

	reviewDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "review_decisions_total",
			Help:      "Approve/reject operations by action and resulting error kind.",
		},
		[]string{"action", "result"},
	)

	bulkBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "bulk_batch_size",
			Help:      "Number of submissions in a bulk review request.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		},
		[]string{"action"},
	)
)
