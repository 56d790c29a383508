package maker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlacedTotal tracks maker order placements.
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_maker_orders_placed_total",
		Help: "Total number of liquidity orders placed",
	})

	// OrdersCancelledTotal tracks cancellations by reason.
	OrdersCancelledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_maker_orders_cancelled_total",
			Help: "Total number of liquidity orders cancelled, by reason",
		},
		[]string{"reason"},
	)

	// OrdersRequotedTotal tracks reprice-driven cancel+requote cycles.
	OrdersRequotedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_maker_orders_requoted_total",
		Help: "Total number of liquidity orders cancelled and requoted on a price move",
	})

	// OrdersSoftRemovedTotal tracks soft-removes (cancel acked, still tracked by id).
	OrdersSoftRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_maker_orders_soft_removed_total",
		Help: "Total number of liquidity orders soft-removed after a cancel",
	})

	// OrdersForceRemovedTotal tracks force-removes after the soft-remove timeout.
	OrdersForceRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_maker_orders_force_removed_total",
		Help: "Total number of liquidity orders force-removed after the soft-remove timeout",
	})

	// TrackedOrdersGauge reports the current by-id index size.
	TrackedOrdersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_maker_tracked_orders",
		Help: "Current number of liquidity orders tracked by id",
	})

	// ReconcileDurationSeconds tracks reconciliation cycle latency.
	ReconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_maker_reconcile_duration_seconds",
		Help:    "Duration of one maker reconciliation cycle",
		Buckets: prometheus.DefBuckets,
	})
)
