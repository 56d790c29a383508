package types

import (
	"math"
	"sort"
	"time"
)

// BookDepth is the number of levels retained per side in a normalized snapshot.
const BookDepth = 5

// PriceDecimals is the authoritative rounding precision for every price
// produced internally.
const PriceDecimals = 3

// Venue identifies which side of the arbitrage pair a snapshot, order, or
// fill belongs to.
type Venue string

const (
	VenueA Venue = "A" // Opinion (BSC, chain id 56)
	VenueB Venue = "B" // Polymarket-style CLOB (Polygon, chain id 137)
)

// RoundPrice rounds a price to PriceDecimals. Rounding is total and
// idempotent: RoundPrice(RoundPrice(x)) == RoundPrice(x).
func RoundPrice(p float64) float64 {
	scale := math.Pow(10, float64(PriceDecimals))
	return math.Round(p*scale) / scale
}

// OrderBookLevel is a single price/size point on one side of a book.
type OrderBookLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot is a normalized, depth-bounded view of one token's order
// book as observed at a point in time.
type OrderBookSnapshot struct {
	TokenID   string
	Source    Venue
	Bids      []OrderBookLevel // descending by price
	Asks      []OrderBookLevel // ascending by price
	Timestamp time.Time
}

// BestBid returns the highest bid level, or false if the book has no bids.
func (s *OrderBookSnapshot) BestBid() (OrderBookLevel, bool) {
	if len(s.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, or false if the book has no asks.
func (s *OrderBookSnapshot) BestAsk() (OrderBookLevel, bool) {
	if len(s.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return s.Asks[0], true
}

// Crossed reports whether the book's best ask is at or below its best bid.
// A book with only one side present is never crossed.
func (s *OrderBookSnapshot) Crossed() bool {
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if !okBid || !okAsk {
		return false
	}
	return ask.Price <= bid.Price
}

// NormalizeLevels rounds prices, drops non-positive sizes, sorts per side
// convention (bids descending, asks ascending), and truncates to BookDepth.
func NormalizeLevels(levels []OrderBookLevel, descending bool) []OrderBookLevel {
	out := make([]OrderBookLevel, 0, len(levels))
	for _, lvl := range levels {
		if lvl.Size <= 0 || lvl.Price <= 0 {
			continue
		}
		out = append(out, OrderBookLevel{Price: RoundPrice(lvl.Price), Size: lvl.Size})
	}

	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})

	if len(out) > BookDepth {
		out = out[:BookDepth]
	}
	return out
}

// DeriveNoSnapshot produces the complementary NO book from a YES snapshot:
// each YES ask at price p becomes a NO bid at 1-p (same size), and each YES
// bid at price p becomes a NO ask at 1-p (same size).
func DeriveNoSnapshot(yes *OrderBookSnapshot, noTokenID string) *OrderBookSnapshot {
	bids := make([]OrderBookLevel, 0, len(yes.Asks))
	for _, ask := range yes.Asks {
		bids = append(bids, OrderBookLevel{Price: RoundPrice(1 - ask.Price), Size: ask.Size})
	}

	asks := make([]OrderBookLevel, 0, len(yes.Bids))
	for _, bid := range yes.Bids {
		asks = append(asks, OrderBookLevel{Price: RoundPrice(1 - bid.Price), Size: bid.Size})
	}

	return &OrderBookSnapshot{
		TokenID:   noTokenID,
		Source:    yes.Source,
		Bids:      NormalizeLevels(bids, true),
		Asks:      NormalizeLevels(asks, false),
		Timestamp: yes.Timestamp,
	}
}

// TickSizeForPrice chooses the venue-B tick-size hint: 0.001 when the price
// carries 3 or more decimal digits of precision, else 0.01.
func TickSizeForPrice(price float64) float64 {
	rounded3 := math.Round(price*1000) / 1000
	rounded2 := math.Round(price*100) / 100
	if math.Abs(rounded3-rounded2) > 1e-9 {
		return 0.001
	}
	return 0.01
}

