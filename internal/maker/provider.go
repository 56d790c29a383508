// Package maker implements the liquidity (maker) provider: a
// set-reconciliation state machine over resting venue-A orders, each hedged
// against a venue-B ask (C8). It also owns the by-key/by-id dual index that
// the order tracker (C9) and hedger (C10) operate against.
package maker

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/bookfetcher"
	"github.com/mselser95/polymarket-arb/internal/fees"
	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Config bundles the maker provider's sizing, reprice and capacity knobs.
type Config struct {
	MaxLiquidityOrders        int
	LiquidityTargetSize       float64
	LiquidityPriceTolerance   float64
	LiquidityRequoteIncrement float64
	OpinionMinFee             float64
	MarkedForRemovalTimeout   time.Duration
	CancelDwell               time.Duration // re-query delay after a cancel ack, default 500ms
}

// HedgeFunc is invoked with a fill delta for a tracked order; the maker
// hands off to the hedger (C10) through this seam rather than importing it
// directly, since the hedger in turn needs only the state and the delta.
type HedgeFunc func(ctx context.Context, state *types.LiquidityOrderState, delta float64)

// Provider drives the maker's reconciliation cycle and owns the dual index.
type Provider struct {
	venueA   venue.Adapter
	venueB   venue.Adapter
	detector *arbitrage.Detector
	cfg      Config
	logger   *zap.Logger
	hedge    HedgeFunc

	mu    sync.Mutex
	byKey map[string]*types.LiquidityOrderState
	byID  map[string]*types.LiquidityOrderState
}

// NewProvider builds a Provider.
func NewProvider(venueA, venueB venue.Adapter, detector *arbitrage.Detector, cfg Config, logger *zap.Logger, hedge HedgeFunc) *Provider {
	if cfg.CancelDwell <= 0 {
		cfg.CancelDwell = 500 * time.Millisecond
	}
	return &Provider{
		venueA:   venueA,
		venueB:   venueB,
		detector: detector,
		cfg:      cfg,
		logger:   logger,
		hedge:    hedge,
		byKey:    make(map[string]*types.LiquidityOrderState),
		byID:     make(map[string]*types.LiquidityOrderState),
	}
}

// TrackedOrders returns a snapshot of every order currently indexed by id
// (including soft-removed entries), for the order tracker to poll.
func (p *Provider) TrackedOrders() []*types.LiquidityOrderState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*types.LiquidityOrderState, 0, len(p.byID))
	for _, s := range p.byID {
		out = append(out, s)
	}
	return out
}

// RunCycle computes the desired maker candidate set from the current books,
// then reconciles it against the resting orders in byKey: new candidates
// are placed, stale orders are cancelled, and matched orders are repriced
// when the market has moved enough.
func (p *Provider) RunCycle(ctx context.Context, matchBooks []*bookfetcher.MatchBooks) {
	start := time.Now()
	defer func() {
		ReconcileDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	desired := p.desiredSet(matchBooks)

	p.mu.Lock()
	desiredKeys := make(map[string]*types.Opportunity, len(desired))
	for _, opp := range desired {
		desiredKeys[opp.Key()] = opp
	}

	var toCancel []*types.LiquidityOrderState
	var toReprice []struct {
		state *types.LiquidityOrderState
		opp   *types.Opportunity
	}
	var toPlace []*types.Opportunity

	for key, opp := range desiredKeys {
		if existing, ok := p.byKey[key]; ok {
			toReprice = append(toReprice, struct {
				state *types.LiquidityOrderState
				opp   *types.Opportunity
			}{existing, opp})
		} else {
			toPlace = append(toPlace, opp)
		}
	}
	for key, existing := range p.byKey {
		if _, ok := desiredKeys[key]; !ok {
			toCancel = append(toCancel, existing)
		}
	}
	p.mu.Unlock()

	for _, s := range toCancel {
		p.cancelOrder(ctx, s, "not-in-desired-set")
	}
	for _, item := range toReprice {
		p.maybeReprice(ctx, item.state, item.opp)
	}
	for _, opp := range toPlace {
		p.placeOrder(ctx, opp)
	}
}

// desiredSet evaluates maker candidates, restricts them to the two
// canonical per-match maker strategies (buy venue-A YES hedged by venue-B
// NO, and the symmetric NO/YES pairing), and ranks/caps by annualized rate.
func (p *Provider) desiredSet(matchBooks []*bookfetcher.MatchBooks) []*types.Opportunity {
	candidates := p.detector.DetectMaker(matchBooks)

	filtered := make([]*types.Opportunity, 0, len(candidates))
	for _, c := range candidates {
		if c.Strategy == types.StrategyYesANoB || c.Strategy == types.StrategyNoAYesB {
			filtered = append(filtered, c)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		ri, rj := rateOrZero(filtered[i]), rateOrZero(filtered[j])
		return ri > rj
	})

	if p.cfg.MaxLiquidityOrders > 0 && len(filtered) > p.cfg.MaxLiquidityOrders {
		filtered = filtered[:p.cfg.MaxLiquidityOrders]
	}
	return filtered
}

func rateOrZero(opp *types.Opportunity) float64 {
	if opp.AnnualizedRate == nil {
		return 0
	}
	return *opp.AnnualizedRate
}

// placeOrder sizes and submits a new resting venue-A order for a desired
// candidate with no existing state at its key.
func (p *Provider) placeOrder(ctx context.Context, opp *types.Opportunity) {
	grossSize, effSize := fees.GetOrderSize("opinion", opp.FirstLeg.Price, p.cfg.LiquidityTargetSize, p.cfg.OpinionMinFee, true)
	if !fees.MeetsNotionalFloor(grossSize, opp.FirstLeg.Price) {
		OrdersCancelledTotal.WithLabelValues("notional-floor").Inc()
		return
	}

	orderID, err := p.venueA.PlaceOrder(ctx, venue.PlaceOrderRequest{
		Market: opp.Match.VenueBSlug,
		Token:  opp.FirstLeg.Token,
		Side:   opp.FirstLeg.Side,
		Price:  opp.FirstLeg.Price,
		Size:   grossSize,
		TIF:    venue.TIFGTC,
	})
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("maker-place-failed", zap.String("key", opp.Key()), zap.Error(err))
		}
		return
	}

	now := time.Now()
	state := &types.LiquidityOrderState{
		Key:             opp.Key(),
		OrderID:         orderID,
		Match:           opp.Match,
		TokenA:          opp.FirstLeg.Token,
		PriceA:          opp.FirstLeg.Price,
		SideA:           opp.FirstLeg.Side,
		OrderSizeA:      grossSize,
		EffectiveSize:   effSize,
		TokenB:          opp.SecondLeg.Token,
		SideB:           opp.SecondLeg.Side,
		PriceBReference: opp.SecondLeg.Price,
		Status:          types.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	p.mu.Lock()
	p.byKey[state.Key] = state
	p.byID[state.OrderID] = state
	TrackedOrdersGauge.Set(float64(len(p.byID)))
	p.mu.Unlock()

	OrdersPlacedTotal.Inc()
}

// maybeReprice applies the reprice rule: a venue-A best bid strictly above
// the resting price by more than the requote increment, or any price move
// beyond the tolerance band, triggers cancel+requote. Otherwise the hedge
// reference price is refreshed in place.
func (p *Provider) maybeReprice(ctx context.Context, state *types.LiquidityOrderState, opp *types.Opportunity) {
	newPrice := opp.FirstLeg.Price

	improved := newPrice-state.PriceA > p.cfg.LiquidityRequoteIncrement
	moved := !improved && absFloat(newPrice-state.PriceA) > p.cfg.LiquidityPriceTolerance

	if improved || moved {
		OrdersRequotedTotal.Inc()
		p.cancelOrder(ctx, state, "reprice")
		p.placeOrder(ctx, opp)
		return
	}

	p.mu.Lock()
	state.PriceBReference = opp.SecondLeg.Price
	state.UpdatedAt = time.Now()
	p.mu.Unlock()
}

// cancelOrder runs the cancel protocol: request cancellation, dwell, then
// re-query status. A late fill is forwarded to the hedger before the order
// is removed; a confirmed cancel is soft-removed (kept in byID); anything
// else is left in place for the next cycle to retry.
func (p *Provider) cancelOrder(ctx context.Context, state *types.LiquidityOrderState, reason string) {
	if err := p.venueA.Cancel(ctx, state.OrderID); err != nil {
		if p.logger != nil {
			p.logger.Warn("maker-cancel-request-failed", zap.String("order-id", state.OrderID), zap.Error(err))
		}
		return
	}

	select {
	case <-time.After(p.cfg.CancelDwell):
	case <-ctx.Done():
		return
	}

	result, err := p.venueA.GetOrder(ctx, state.OrderID)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("maker-cancel-requery-failed", zap.String("order-id", state.OrderID), zap.Error(err))
		}
		return
	}

	p.mu.Lock()
	priorFilled := state.Filled
	state.Status = result.Status
	state.Filled = result.Filled
	state.UpdatedAt = time.Now()
	p.mu.Unlock()

	if result.Filled > priorFilled && p.hedge != nil {
		p.hedge(ctx, state, result.Filled-priorFilled)
	}

	switch {
	case result.Status == types.StatusCancelled || result.Status == types.StatusCancelInProgress:
		p.softRemove(state)
		OrdersCancelledTotal.WithLabelValues(reason).Inc()
	case result.Status == types.StatusFilled:
		p.softRemove(state)
		OrdersCancelledTotal.WithLabelValues("filled-during-cancel").Inc()
	default:
		if p.logger != nil {
			p.logger.Info("maker-cancel-still-resting", zap.String("order-id", state.OrderID), zap.String("status", string(result.Status)))
		}
	}
}

// softRemove drops state from byKey while keeping it in byID, so a late
// fill observed by the tracker is still hedged (the no-orphan-fill
// invariant).
func (p *Provider) softRemove(state *types.LiquidityOrderState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byKey[state.Key]; ok && existing.OrderID == state.OrderID {
		delete(p.byKey, state.Key)
	}
	state.MarkedForRemoval = true
	state.RemovalMarkedAt = time.Now()
	OrdersSoftRemovedTotal.Inc()
}

// SweepExpired force-removes soft-removed entries older than
// MarkedForRemovalTimeout from byID.
func (p *Provider) SweepExpired() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for id, s := range p.byID {
		if s.MarkedForRemoval && now.Sub(s.RemovalMarkedAt) > p.cfg.MarkedForRemovalTimeout {
			delete(p.byID, id)
			OrdersForceRemovedTotal.Inc()
		}
	}
	TrackedOrdersGauge.Set(float64(len(p.byID)))
}

// ApplyStatus updates a tracked order's status/filled/total from a status
// poll (C9), reconciles the result into the order's single absolute filled
// amount, forwards whatever remains unhedged to the hedger, and finalizes
// (soft-removes) terminal orders. The status and trade-tape streams (see
// ApplyTradeFill) both converge on the same state.Filled so a fill either
// one observes is hedged exactly once.
func (p *Provider) ApplyStatus(ctx context.Context, orderID string, status types.OrderStatus, filled, total float64) {
	p.mu.Lock()
	state, ok := p.byID[orderID]
	p.mu.Unlock()
	if !ok {
		return
	}

	state.Lock()
	if filled > state.Filled {
		state.Filled = filled
	}
	state.Status = status
	state.LastStatusCheck = time.Now()
	state.UpdatedAt = time.Now()
	remaining := state.RemainingToHedge()
	if remaining > 0 && p.hedge != nil {
		p.hedge(ctx, state, remaining)
	}
	state.Unlock()

	if status.Terminal() {
		p.softRemove(state)
	}
}

// ApplyTradeFill folds a trade-tape fill delta for a tracked order id
// (C9's trade-poll stream) into the order's cumulative trade-observed
// volume, reconciles that into state.Filled alongside whatever the status
// stream has already seen, and forwards whatever remains unhedged to the
// hedger.
func (p *Provider) ApplyTradeFill(ctx context.Context, orderID string, delta float64) bool {
	p.mu.Lock()
	state, ok := p.byID[orderID]
	p.mu.Unlock()
	if !ok {
		return false
	}

	state.Lock()
	state.TradeFilled += delta
	if state.TradeFilled > state.Filled {
		state.Filled = state.TradeFilled
	}
	state.UpdatedAt = time.Now()
	remaining := state.RemainingToHedge()
	if remaining > 0 && p.hedge != nil {
		p.hedge(ctx, state, remaining)
	}
	state.Unlock()
	return true
}

// Drain waits until byID is empty or the timeout elapses, for graceful
// shutdown (C11): the maker loop must not exit while fills could still be
// in flight for a tracked order.
func (p *Provider) Drain(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		n := len(p.byID)
		p.mu.Unlock()
		if n == 0 {
			return true
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return false
		}
	}
	p.mu.Lock()
	n := len(p.byID)
	p.mu.Unlock()
	return n == 0
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
