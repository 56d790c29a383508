package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesTotal tracks successful leg fills by leg (A/B) and side.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_execution_trades_total",
			Help: "Total number of taker legs successfully filled",
		},
		[]string{"leg", "side"},
	)

	// ExecutionDurationSeconds tracks the wall time to fire both legs of
	// one opportunity.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_execution_duration_seconds",
		Help:    "Duration of firing both legs of a taker opportunity",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionErrorsTotal tracks leg submission failures.
	ExecutionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_execution_errors_total",
		Help: "Total number of leg submission errors",
	})

	// ExecutionErrorsByType tracks leg submission failures by error class.
	ExecutionErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_execution_errors_by_type_total",
			Help: "Total number of leg submission errors classified by type",
		},
		[]string{"error_type"},
	)

	// OpportunitiesReceived tracks opportunities admitted into the
	// immediate-exec window.
	OpportunitiesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_execution_opportunities_received_total",
		Help: "Total number of arbitrage opportunities admitted for taker execution",
	})

	// OpportunitiesExecuted tracks opportunities whose legs were both fired.
	OpportunitiesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_execution_opportunities_executed_total",
		Help: "Total number of opportunities whose legs were fired",
	})

	// OpportunitiesSkippedTotal tracks opportunities skipped for various reasons.
	OpportunitiesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_execution_opportunities_skipped_total",
			Help: "Total number of opportunities skipped (by reason)",
		},
		[]string{"reason"},
	)
)
