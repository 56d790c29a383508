package types

import (
	"sync"
	"time"
)

// OrderStatus is the closed set of normalized order states. Venue-native
// status vocabularies (strings or small integers, sometimes both for the
// same venue) are mapped into this set at the adapter boundary so the core
// never has to special-case vendor representations.
type OrderStatus string

const (
	StatusPending           OrderStatus = "pending"
	StatusPartial           OrderStatus = "partial"
	StatusFilled            OrderStatus = "filled"
	StatusCancelled         OrderStatus = "cancelled"
	StatusCancelInProgress  OrderStatus = "cancel_in_progress"
	StatusUnknown           OrderStatus = "unknown"
)

// Terminal reports whether the status ends the order's monitored lifetime.
// cancel_in_progress is treated as terminal to avoid repeated cancel
// attempts; the no-orphan-fill protocol protects correctness regardless of
// whether a late status flip occurs after this point.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusCancelInProgress:
		return true
	default:
		return false
	}
}

// LiquidityOrderState is the maker's tracked state for a single resting
// order. It is keyed by Opportunity.Key() (venue-B slug and strategy; the
// strategy fixes token_A and the direction; the venue-A market id is not
// part of the key) and additionally indexed by order id; a state present only in the by-id
// index denotes "marked for removal, still monitored" (the soft-remove
// pattern, see the maker provider).
type LiquidityOrderState struct {
	Key     string
	OrderID string
	Match   *MarketMatch

	TokenA        string
	PriceA        float64
	SideA         Side
	OrderSizeA    float64 // gross size placed, post fee-adjustment
	EffectiveSize float64 // net size the order is meant to deliver

	TokenB          string
	SideB           Side
	PriceBReference float64

	Status      OrderStatus
	Filled      float64 // reconciled absolute fill, the max of both observation streams
	TradeFilled float64 // cumulative volume confirmed via the trade tape alone, feeds into Filled
	Hedged      float64

	CreatedAt time.Time
	UpdatedAt time.Time

	MarkedForRemoval bool
	RemovalMarkedAt  time.Time

	LastStatusCheck time.Time
	LastStatusLog   time.Time

	// hedgeMu serializes the fill-reconcile/hedge-dispatch sequence for this
	// order across the status-poll and trade-tape streams, so a fill both
	// streams observe is only ever hedged once.
	hedgeMu sync.Mutex
}

// Lock/Unlock let the maker provider serialize reconciliation and hedge
// dispatch against this order's two independent fill-observation streams.
func (s *LiquidityOrderState) Lock()   { s.hedgeMu.Lock() }
func (s *LiquidityOrderState) Unlock() { s.hedgeMu.Unlock() }

// RemainingToHedge returns the portion of Filled not yet reflected in Hedged.
func (s *LiquidityOrderState) RemainingToHedge() float64 {
	remaining := s.Filled - s.Hedged
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FullyFilled reports whether the order has delivered its entire size.
func (s *LiquidityOrderState) FullyFilled() bool {
	return s.Filled >= s.OrderSizeA-1e-9
}
