package testutil

import (
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// CreateTestMatch builds a minimal venue-A/venue-B match for tests that don't
// care about the specific token IDs or fee rate.
func CreateTestMatch(slug string) *types.MarketMatch {
	return &types.MarketMatch{
		Question:     "Will " + slug + " happen?",
		MarketIDA:    1,
		YesTokenA:    slug + "-yes-a",
		NoTokenA:     slug + "-no-a",
		ConditionIDB: "0x" + slug,
		YesTokenB:    slug + "-yes-b",
		NoTokenB:     slug + "-no-b",
		VenueBSlug:   slug,
		FeeRateBpsB:  0,
	}
}

// CreateTestOpportunity builds a taker opportunity for the given match with a
// cost comfortably under 1.0.
func CreateTestOpportunity(match *types.MarketMatch, cost float64) *types.Opportunity {
	return &types.Opportunity{
		Match:    match,
		Strategy: types.StrategyYesANoB,
		FirstLeg: types.LegSpec{
			Venue: types.VenueA,
			Token: match.YesTokenA,
			Side:  types.SideBuy,
			Price: 0.48,
			Size:  100.0,
		},
		SecondLeg: types.LegSpec{
			Venue: types.VenueB,
			Token: match.NoTokenB,
			Side:  types.SideBuy,
			Price: cost - 0.48,
			Size:  100.0,
		},
		Cost:       cost,
		ProfitRate: (1 - cost) / cost,
		MinSize:    100.0,
		Timestamp:  time.Now(),
	}
}

// CreateTestBookLevel builds a single normalized order book level.
func CreateTestBookLevel(price, size float64) types.OrderBookLevel {
	return types.OrderBookLevel{Price: types.RoundPrice(price), Size: size}
}

// CreateTestSnapshot builds a normalized snapshot with one bid and one ask
// level, convenient for arbitrage-detection fixtures.
func CreateTestSnapshot(tokenID string, source types.Venue, bid, ask float64) *types.OrderBookSnapshot {
	return &types.OrderBookSnapshot{
		TokenID:   tokenID,
		Source:    source,
		Bids:      []types.OrderBookLevel{CreateTestBookLevel(bid, 100.0)},
		Asks:      []types.OrderBookLevel{CreateTestBookLevel(ask, 100.0)},
		Timestamp: time.Now(),
	}
}
