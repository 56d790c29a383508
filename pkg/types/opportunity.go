package types

import "time"

// Strategy identifies one of the two YES/NO x venue-A/venue-B combinations
// the detector evaluates for a given match.
type Strategy string

const (
	// StrategyYesANoB buys YES on venue A and the complementary NO on venue B.
	StrategyYesANoB Strategy = "YA+NB"
	// StrategyNoAYesB buys NO on venue A and the complementary YES on venue B.
	StrategyNoAYesB Strategy = "NA+YB"
)

// Side is a buy or sell direction on an outcome token. Both venue adapters
// speak this vocabulary at their boundary.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// LegSpec describes one side of a two-leg arbitrage trade.
type LegSpec struct {
	Venue Venue
	Token string
	Side  Side
	Price float64
	Size  float64
}

// Opportunity is a detected arbitrage candidate: two complementary legs
// whose combined effective cost undercuts 1.0.
type Opportunity struct {
	Match          *MarketMatch
	Strategy       Strategy
	FirstLeg       LegSpec
	SecondLeg      LegSpec
	Cost           float64 // effective combined cost per token pair
	ProfitRate     float64 // (1 - cost) / cost
	AnnualizedRate *float64
	MinSize        float64
	Timestamp      time.Time
	Maker          bool // true when this is a maker candidate rather than a taker candidate
}

// Key returns the cooldown / reconciliation key for this opportunity: the
// venue-B slug joined with the strategy. Taker de-duplication and maker
// state (LiquidityOrderState.Key) both use it; the venue-A market id is not
// part of the key.
func (o *Opportunity) Key() string {
	return o.Match.VenueBSlug + "||" + string(o.Strategy)
}
