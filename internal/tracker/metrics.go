package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatusPollsTotal counts status-poll calls issued.
	StatusPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_tracker_status_polls_total",
		Help: "Total number of order status polls issued",
	})

	// TradePollsTotal counts trade-tape poll calls issued.
	TradePollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_tracker_trade_polls_total",
		Help: "Total number of trade tape polls issued",
	})

	// FillDeltasForwardedTotal counts fill deltas forwarded to the hedger.
	FillDeltasForwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_tracker_fill_deltas_forwarded_total",
			Help: "Total number of fill deltas forwarded to the hedger, by source",
		},
		[]string{"source"},
	)

	// UntrackedTradesTotal counts trades seen for an order id the maker
	// does not currently track.
	UntrackedTradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_tracker_untracked_trades_total",
		Help: "Total number of trade tape entries for an untracked order id",
	})

	// TradeDedupHitsTotal counts trade ids already seen by the dedup cache.
	TradeDedupHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_tracker_trade_dedup_hits_total",
		Help: "Total number of trade tape entries skipped as already-seen",
	})
)
