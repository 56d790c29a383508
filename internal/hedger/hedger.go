// Package hedger implements the loop-filling hedge driver (C10): given a
// fill delta on a resting venue-A order, it takes the matching counter-leg
// on venue B, walking the ask book one level at a time until the delta is
// fully drained or liquidity runs out.
package hedger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// sizeEpsilon is the floor below which a remaining or tradable size is
// treated as fully drained / unusable.
const sizeEpsilon = 1e-6

// Config bundles the hedger's venue-B placement knobs.
type Config struct {
	StepDelay time.Duration // short sleep between levels when more than one is consumed
}

// Hedger drains a fill delta against venue B's ask book.
type Hedger struct {
	venueB venue.Adapter
	cfg    Config
	logger *zap.Logger
}

// New builds a Hedger.
func New(venueB venue.Adapter, cfg Config, logger *zap.Logger) *Hedger {
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hedger{venueB: venueB, cfg: cfg, logger: logger}
}

// Hedge is a maker.HedgeFunc: it drains hedgeDelta against venue B's ask
// book for state.TokenB, one level at a time, updating state.Hedged as it
// goes.
func (h *Hedger) Hedge(ctx context.Context, state *types.LiquidityOrderState, hedgeDelta float64) {
	remaining := hedgeDelta
	levels := 0

	for remaining > sizeEpsilon {
		book, err := h.venueB.FetchBook(ctx, state.TokenB)
		if err != nil {
			h.logger.Warn("hedge-fetch-book-failed",
				zap.String("order-id", state.OrderID), zap.Error(err))
			HedgeFailuresTotal.WithLabelValues("fetch-book-error").Inc()
			break
		}

		ask, ok := book.BestAsk()
		if !ok {
			h.logger.Warn("hedge-no-liquidity", zap.String("order-id", state.OrderID))
			HedgeFailuresTotal.WithLabelValues("no-liquidity").Inc()
			break
		}

		tradable := min(remaining, ask.Size)
		if tradable <= sizeEpsilon {
			h.logger.Warn("hedge-top-ask-too-thin",
				zap.String("order-id", state.OrderID), zap.Float64("ask-size", ask.Size))
			HedgeFailuresTotal.WithLabelValues("top-ask-too-thin").Inc()
			break
		}

		_, err = h.venueB.PlaceOrder(ctx, venue.PlaceOrderRequest{
			Token:    state.TokenB,
			Side:     state.SideB,
			Price:    ask.Price,
			Size:     tradable,
			TIF:      venue.TIFGTC,
			TickSize: types.TickSizeForPrice(ask.Price),
			NegRisk:  state.Match.NegRiskB,
		})
		if err != nil {
			h.logger.Error("hedge-place-order-failed",
				zap.String("order-id", state.OrderID), zap.Error(err))
			HedgeFailuresTotal.WithLabelValues("place-order-error").Inc()
			break
		}

		HedgeFillsTotal.Inc()
		HedgeVolume.Add(tradable)
		levels++
		remaining -= tradable
		state.Hedged += tradable

		if remaining > sizeEpsilon {
			select {
			case <-ctx.Done():
				return
			case <-time.After(h.cfg.StepDelay):
			}
		}
	}

	if levels > 0 {
		HedgeLevelsConsumed.Observe(float64(levels))
	}
}
