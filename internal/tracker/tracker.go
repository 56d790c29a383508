// Package tracker implements the order tracker (C9): a single background
// worker that polls venue-A order status and its trade tape, forwarding
// fill deltas to the maker's hedger hook while staying idempotent across
// both streams.
package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/maker"
	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/cache"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// dedupCapacity bounds the trade-id dedup LRU, per the order tracker's
// fixed capacity (500 entries).
const dedupCapacity = 500

// dedupTTL is generous relative to any plausible poll cadence: the cache's
// size-based eviction, not time, is what actually bounds membership.
const dedupTTL = time.Hour

// Config bundles the order tracker's poll cadences and trade-page size.
type Config struct {
	StatusPollInterval time.Duration
	TradePollInterval  time.Duration
	TradeLimit         int
}

// Tracker runs the status and trade-tape poll loops against venue A, the
// only venue whose fill attribution needs it (venue B's status poll alone
// is authoritative there).
type Tracker struct {
	venueA   venue.Adapter
	provider *maker.Provider
	cfg      Config
	logger   *zap.Logger
	dedup    cache.Cache
}

// NewTracker builds a Tracker.
func NewTracker(venueA venue.Adapter, provider *maker.Provider, cfg Config, logger *zap.Logger) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dedup, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: dedupCapacity * 10,
		MaxCost:     dedupCapacity,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &Tracker{
		venueA:   venueA,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		dedup:    dedup,
	}, nil
}

// Run blocks, driving both poll loops until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		t.statusLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		t.tradeLoop(ctx)
	}()

	wg.Wait()
	t.dedup.Close()
}

func (t *Tracker) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.StatusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollStatusOnce(ctx)
		}
	}
}

func (t *Tracker) tradeLoop(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.TradePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollTradesOnce(ctx)
		}
	}
}

// pollStatusOnce queries every order currently tracked by id, including
// soft-removed entries (a late status flip on those still matters until
// the maker force-removes them).
func (t *Tracker) pollStatusOnce(ctx context.Context) {
	for _, order := range t.provider.TrackedOrders() {
		result, err := t.venueA.GetOrder(ctx, order.OrderID)
		StatusPollsTotal.Inc()
		if err != nil {
			if t.logger != nil {
				t.logger.Warn("status-poll-failed", zap.String("order-id", order.OrderID), zap.Error(err))
			}
			continue
		}

		priorFilled := order.Filled
		t.provider.ApplyStatus(ctx, order.OrderID, result.Status, result.Filled, result.Total)
		if result.Filled > priorFilled {
			FillDeltasForwardedTotal.WithLabelValues("status").Inc()
		}
	}
}

// pollTradesOnce pulls the recent trade tape, de-duplicates by trade id,
// aggregates filled trades per order id, and forwards one delta per order
// per poll to the maker.
func (t *Tracker) pollTradesOnce(ctx context.Context) {
	trades, err := t.venueA.GetRecentTrades(ctx, t.cfg.TradeLimit)
	TradePollsTotal.Inc()
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("trade-poll-failed", zap.Error(err))
		}
		return
	}

	deltas := make(map[string]float64)
	for _, trade := range trades {
		if trade.Status != types.StatusFilled {
			continue
		}
		if _, seen := t.dedup.Get(trade.TradeID); seen {
			TradeDedupHitsTotal.Inc()
			continue
		}
		t.dedup.Set(trade.TradeID, struct{}{}, dedupTTL)
		deltas[trade.OrderID] += trade.Size
	}

	for orderID, delta := range deltas {
		if delta <= 0 {
			continue
		}
		if ok := t.provider.ApplyTradeFill(ctx, orderID, delta); ok {
			FillDeltasForwardedTotal.WithLabelValues("trade-tape").Inc()
		} else {
			UntrackedTradesTotal.Inc()
			if t.logger != nil {
				t.logger.Info("untracked-trade", zap.String("order-id", orderID), zap.Float64("size", delta))
			}
		}
	}
}
