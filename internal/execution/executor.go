// Package execution implements the taker executor (C7): given opportunities
// the detector scored as taker candidates, it applies the immediate-exec
// annualized window, a per-key execution cooldown, fee-adjusted sizing, and
// fires both legs concurrently as fire-and-report aggressive takers.
package execution

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/fees"
	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Config bundles the taker executor's sizing, cooldown and retry knobs.
type Config struct {
	ImmediateExecEnabled bool
	ImmediateMinPercent  float64
	ImmediateMaxPercent  float64
	ImmediateOrderSize   float64
	ExecutionCooldown    time.Duration
	OrderMaxRetries      int
	OrderRetryDelay      time.Duration
	OpinionMinFee        float64
}

// Executor fires both legs of a taker opportunity without waiting for
// fills; each leg is reported independently, and the executor does not
// attempt to reconcile directional exposure from a partial misfire.
type Executor struct {
	venueA venue.Adapter
	venueB venue.Adapter
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	cooldowns map[string]time.Time

	// onFailStop is called by every leg goroutine that observes a
	// balance_exhausted classification (C12); the executor does not
	// de-duplicate these calls.
	onFailStop func(error)
}

// NewExecutor builds an Executor.
func NewExecutor(venueA, venueB venue.Adapter, cfg Config, logger *zap.Logger, onFailStop func(error)) *Executor {
	return &Executor{
		venueA:     venueA,
		venueB:     venueB,
		cfg:        cfg,
		logger:     logger,
		cooldowns:  make(map[string]time.Time),
		onFailStop: onFailStop,
	}
}

// Execute filters opportunities to the immediate-exec annualized window,
// applies the per-key cooldown, and fires the admitted candidates'
// legs concurrently. It blocks until every admitted opportunity's legs
// have been attempted and returns the number of opportunities actually
// fired, which may be fewer than len(opportunities) once the immediate-exec
// window and cooldown have filtered the set.
func (e *Executor) Execute(ctx context.Context, opportunities []*types.Opportunity) int {
	if !e.cfg.ImmediateExecEnabled {
		return 0
	}

	var wg sync.WaitGroup
	var fired int64
	for _, opp := range opportunities {
		if !e.admits(opp) {
			continue
		}
		if !e.claim(opp.Key()) {
			OpportunitiesSkippedTotal.WithLabelValues("cooldown").Inc()
			continue
		}

		OpportunitiesReceived.Inc()
		atomic.AddInt64(&fired, 1)
		wg.Add(1)
		go func(o *types.Opportunity) {
			defer wg.Done()
			e.fire(ctx, o)
		}(opp)
	}
	wg.Wait()
	return int(fired)
}

// admits reports whether opp's annualized rate falls in the immediate-exec
// window. A nil AnnualizedRate (no cutoff, or no time remaining) never
// admits, per §4.6's unconditional-fail rule.
func (e *Executor) admits(opp *types.Opportunity) bool {
	if opp.Maker {
		return false
	}
	if opp.AnnualizedRate == nil {
		return false
	}
	rate := *opp.AnnualizedRate
	return rate >= e.cfg.ImmediateMinPercent && rate <= e.cfg.ImmediateMaxPercent
}

// claim marks key as executed now if it is not within the cooldown window,
// returning whether the caller may proceed.
func (e *Executor) claim(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.cooldowns[key]; ok && time.Since(last) < e.cfg.ExecutionCooldown {
		return false
	}
	e.cooldowns[key] = time.Now()
	return true
}

// fire computes sizing for both legs and submits them concurrently.
func (e *Executor) fire(ctx context.Context, opp *types.Opportunity) {
	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	targetSize := e.cfg.ImmediateOrderSize
	if sizeCap := 0.9 * opp.MinSize; sizeCap < targetSize {
		targetSize = sizeCap
	}
	if targetSize > 1000 {
		targetSize = 1000
	}
	if targetSize <= 0 {
		OpportunitiesSkippedTotal.WithLabelValues("zero-size").Inc()
		return
	}

	grossA := fees.AdjustedOrderSize(targetSize, opp.FirstLeg.Price, e.cfg.OpinionMinFee)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		e.submitLeg(ctx, "A", e.venueA, venue.PlaceOrderRequest{
			Market:   opp.Match.VenueBSlug,
			Token:    opp.FirstLeg.Token,
			Side:     opp.FirstLeg.Side,
			Price:    opp.FirstLeg.Price,
			Size:     grossA,
			TIF:      venue.TIFFOK,
			TickSize: types.TickSizeForPrice(opp.FirstLeg.Price),
			NegRisk:  opp.Match.NegRiskB,
		})
	}()

	go func() {
		defer wg.Done()
		e.submitLeg(ctx, "B", e.venueB, venue.PlaceOrderRequest{
			Market:   opp.Match.VenueBSlug,
			Token:    opp.SecondLeg.Token,
			Side:     opp.SecondLeg.Side,
			Price:    opp.SecondLeg.Price,
			Size:     targetSize,
			TIF:      venue.TIFFOK,
			TickSize: types.TickSizeForPrice(opp.SecondLeg.Price),
			NegRisk:  opp.Match.NegRiskB,
		})
	}()

	wg.Wait()
	OpportunitiesExecuted.Inc()
}

// submitLeg retries up to OrderMaxRetries with OrderRetryDelay backoff.
// A balance_exhausted classification short-circuits retries and calls the
// fail-stop hook for this leg.
func (e *Executor) submitLeg(ctx context.Context, legName string, adapter venue.Adapter, req venue.PlaceOrderRequest) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.OrderMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.cfg.OrderRetryDelay):
			}
		}

		orderID, err := adapter.PlaceOrder(ctx, req)
		if err == nil {
			TradesTotal.WithLabelValues(legName, string(req.Side)).Inc()
			if e.logger != nil {
				e.logger.Info("leg-filled",
					zap.String("leg", legName),
					zap.String("order-id", orderID),
					zap.String("token", req.Token),
					zap.Float64("price", req.Price),
					zap.Float64("size", req.Size))
			}
			return
		}

		lastErr = err
		class := types.ClassifyError(err)
		ExecutionErrorsByType.WithLabelValues(string(class)).Inc()

		if class == types.ClassBalanceExhausted {
			ExecutionErrorsTotal.Inc()
			if e.onFailStop != nil {
				e.onFailStop(fmt.Errorf("leg %s balance exhausted: %w", legName, err))
			}
			return
		}

		if class != types.ClassTransientNetwork {
			break
		}
	}

	ExecutionErrorsTotal.Inc()
	if e.logger != nil {
		e.logger.Error("leg-failed",
			zap.String("leg", legName),
			zap.String("token", req.Token),
			zap.Error(lastErr))
	}
}
