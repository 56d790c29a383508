package types

import "time"

// Trade represents a single fill as reported by a venue's recent-trades
// endpoint (used by the order tracker's trade-tape poll, C9).
type Trade struct {
	TradeID   string
	OrderID   string
	TokenID   string
	Outcome   string // "YES" or "NO"
	Side      string // "BUY" or "SELL"
	Price     float64
	Size      float64
	Status    OrderStatus
	Timestamp time.Time
}
