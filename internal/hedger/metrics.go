package hedger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HedgeFillsTotal counts individual venue-B hedge placements.
	HedgeFillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_hedger_fills_total",
		Help: "Total number of venue-B hedge orders placed",
	})

	// HedgeVolume sums the hedged size across all successful placements.
	HedgeVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_hedger_volume_total",
		Help: "Total size hedged on venue B",
	})

	// HedgeFailuresTotal counts aborted hedge attempts, by reason.
	HedgeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_hedger_failures_total",
			Help: "Total number of hedge attempts that could not fully drain, by reason",
		},
		[]string{"reason"},
	)

	// HedgeLevelsConsumed tracks how many ask levels a single hedge call walked.
	HedgeLevelsConsumed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_hedger_levels_consumed",
		Help:    "Number of venue-B ask levels consumed per hedge invocation",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})
)
