package bookfetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CycleDurationSeconds tracks how long one full fetch cycle takes.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_arb_bookfetch_cycle_duration_seconds",
		Help:    "Duration of one book-fetch cycle across all matches",
		Buckets: prometheus.DefBuckets,
	})

	// TokensMissingTotal counts tokens with no book returned in a cycle.
	TokensMissingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_arb_bookfetch_tokens_missing_total",
			Help: "Total number of tokens with no orderbook snapshot in a fetch cycle",
		},
		[]string{"venue"},
	)

	// MatchesSkewDroppedTotal counts matches discarded by the skew gate.
	MatchesSkewDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_arb_bookfetch_skew_dropped_total",
		Help: "Total number of matches dropped for exceeding the orderbook skew gate",
	})

	// VenueFetchErrorsTotal counts adapter-level fetch failures by venue.
	VenueFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_arb_bookfetch_errors_total",
			Help: "Total number of venue book-fetch errors",
		},
		[]string{"venue"},
	)
)
