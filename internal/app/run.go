package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/storage"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Run drives the engine according to the configured Mode until the process
// receives SIGINT/SIGTERM (continuous modes) or one cycle completes (the
// "-once" modes), then shuts down gracefully.
func (a *App) Run() error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http-server-failed", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.loader.Run(a.ctx)
	}()

	a.healthChecker.SetReady(true)

	isOnce := a.mode == ModeProOnce || a.mode == ModeLiquidityOnce
	if !isOnce {
		go a.watchShutdownSignal()
	}

	switch a.mode {
	case ModeProOnce:
		a.runTakerCycle(a.ctx)
		return a.Shutdown()
	case ModeLiquidity:
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.tracker.Run(a.ctx)
		}()
		a.makerLoop(a.ctx)
		return a.Shutdown()
	case ModeLiquidityOnce:
		a.runMakerCycle(a.ctx)
		return a.Shutdown()
	default: // ModePro
		a.takerLoop(a.ctx)
		return a.Shutdown()
	}
}

// watchShutdownSignal cancels the app context on SIGINT/SIGTERM, which
// every loop below selects on.
func (a *App) watchShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		a.logger.Info("shutdown-signal-received")
		a.cancel()
	case <-a.ctx.Done():
	}
}

// takerLoop runs the taker scan-execute cycle on ProLoopInterval until
// stopped.
func (a *App) takerLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.ProLoopInterval)
	defer ticker.Stop()

	a.runTakerCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runTakerCycle(ctx)
		}
	}
}

// makerLoop runs the maker reconciliation cycle on LiquidityLoopInterval
// until stopped.
func (a *App) makerLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.LiquidityLoopInterval)
	defer ticker.Stop()

	a.runMakerCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runMakerCycle(ctx)
		}
	}
}

// runTakerCycle fetches books, detects taker opportunities, persists each
// one, and fires the executor against the admitted set.
func (a *App) runTakerCycle(ctx context.Context) {
	if a.breaker != nil && !a.breaker.IsEnabled() {
		a.logger.Warn("taker-cycle-skipped", zap.String("reason", "circuit breaker disabled"))
		return
	}

	matches := a.loader.Matches()
	books := a.fetcher.FetchCycle(ctx, matches)
	a.latestBooks.store(books)

	opps := a.detector.DetectTaker(books)
	a.recordOpportunities(ctx, opps)

	executed := a.executor.Execute(ctx, opps)
	a.addExecuted(int64(executed))

	a.publishStats(ctx)
}

// runMakerCycle fetches books, reconciles resting orders against the
// current maker-eligible opportunity set, and sweeps expired soft-removes.
func (a *App) runMakerCycle(ctx context.Context) {
	if a.breaker != nil && !a.breaker.IsEnabled() {
		a.logger.Warn("maker-cycle-skipped", zap.String("reason", "circuit breaker disabled"))
		return
	}

	matches := a.loader.Matches()
	books := a.fetcher.FetchCycle(ctx, matches)
	a.latestBooks.store(books)

	a.provider.RunCycle(ctx, books)
	a.provider.SweepExpired()

	a.publishStats(ctx)
}

// hedge is the maker.HedgeFunc: it drains the observed fill delta against
// venue B via the hedger, then persists both the triggering fill and the
// resulting hedge leg.
func (a *App) hedge(ctx context.Context, state *types.LiquidityOrderState, delta float64) {
	hedgedBefore := state.Hedged
	a.hedger.Hedge(ctx, state, delta)
	hedgedThisCall := state.Hedged - hedgedBefore

	a.addFill(delta)
	if err := a.store.StoreFill(ctx, &storage.FillRecord{
		OrderID:   state.OrderID,
		Venue:     venueAName,
		MatchSlug: state.Match.Key(),
		TokenID:   state.TokenA,
		Side:      state.SideA,
		Price:     state.PriceA,
		Size:      delta,
		Maker:     true,
		Timestamp: time.Now(),
	}); err != nil {
		a.logger.Warn("store-fill-failed", zap.Error(err))
	}

	a.addHedge(hedgedThisCall)
	if err := a.store.StoreHedge(ctx, &storage.HedgeRecord{
		OrderKey:  state.Key,
		MatchSlug: state.Match.Key(),
		TokenID:   state.TokenB,
		Side:      state.SideB,
		Price:     state.PriceBReference,
		Size:      hedgedThisCall,
		Timestamp: time.Now(),
	}); err != nil {
		a.logger.Warn("store-hedge-failed", zap.Error(err))
	}
}

// venueAName labels fills the hedger's trigger delta observed on venue A.
const venueAName = types.VenueA

// recordOpportunities persists every detected opportunity and bumps the
// detected counter.
func (a *App) recordOpportunities(ctx context.Context, opps []*types.Opportunity) {
	if len(opps) == 0 {
		return
	}
	a.addDetected(int64(len(opps)))
	for _, opp := range opps {
		if err := a.store.StoreOpportunity(ctx, opp); err != nil {
			a.logger.Warn("store-opportunity-failed", zap.Error(err))
		}
	}
}

// publishStats snapshots and persists the running counters.
func (a *App) publishStats(ctx context.Context) {
	a.statsMu.Lock()
	a.stats.LastStatsAt = time.Now()
	snapshot := a.stats
	a.statsMu.Unlock()

	if err := a.store.StoreStats(ctx, &snapshot); err != nil {
		a.logger.Warn("store-stats-failed", zap.Error(err))
	}
}

func (a *App) addDetected(n int64) {
	a.statsMu.Lock()
	a.stats.OpportunitiesDetected += n
	a.statsMu.Unlock()
}

func (a *App) addExecuted(n int64) {
	a.statsMu.Lock()
	a.stats.OpportunitiesExecuted += n
	a.statsMu.Unlock()
}

func (a *App) addFill(size float64) {
	a.statsMu.Lock()
	a.stats.FillsCount++
	a.stats.FillsVolume += size
	a.statsMu.Unlock()
}

func (a *App) addHedge(size float64) {
	a.statsMu.Lock()
	a.stats.HedgeCount++
	a.stats.HedgeVolume += size
	a.statsMu.Unlock()
}

// failStop is the executor's onFailStop hook (C12): a balance-exhausted
// classification on any order leg is unrecoverable for the remainder of the
// run, so the process logs, persists a final stats snapshot, and exits
// hard rather than continuing to fire into a depleted account.
func (a *App) failStop(err error) {
	a.logger.Error("fail-stop-triggered", zap.Error(err))
	a.publishStats(context.Background())
	a.healthChecker.SetReady(false)
	os.Exit(1)
}
