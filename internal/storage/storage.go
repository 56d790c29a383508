// Package storage persists the records the engine produces in the course of
// a run: detected opportunities (C6), fills and hedges (C9/C10), and
// periodic stats snapshots (C12). Two implementations share the same
// interface so the rest of the engine is storage-agnostic: a Postgres-backed
// store for production use, and a console pretty-printer for local runs
// without a database configured.
package storage

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Storage is the interface every persistence backend implements.
type Storage interface {
	// StoreOpportunity records a detected arbitrage candidate.
	StoreOpportunity(ctx context.Context, opp *types.Opportunity) error

	// StoreFill records a taker fill or a maker partial/complete fill.
	StoreFill(ctx context.Context, fill *FillRecord) error

	// StoreHedge records a hedge leg placed against a filled maker order.
	StoreHedge(ctx context.Context, hedge *HedgeRecord) error

	// StoreStats records a periodic engine stats snapshot.
	StoreStats(ctx context.Context, stats *types.EngineStats) error

	// Close releases any underlying resources.
	Close() error
}

// FillRecord is one observed fill against a leg the engine placed, on
// either venue, taker or maker.
type FillRecord struct {
	OrderID   string
	Venue     types.Venue
	MatchSlug string
	TokenID   string
	Side      types.Side
	Price     float64
	Size      float64
	Maker     bool
	Timestamp time.Time
}

// HedgeRecord is one hedge leg the hedger (C10) placed on venue B against a
// filled maker order on venue A.
type HedgeRecord struct {
	OrderKey  string // the LiquidityOrderState.Key this hedge closes out
	MatchSlug string
	TokenID   string
	Side      types.Side
	Price     float64
	Size      float64
	Timestamp time.Time
}
