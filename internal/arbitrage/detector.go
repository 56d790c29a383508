// Package arbitrage implements the cross-venue opportunity detector (C6):
// for each matched market it derives both venues' NO books and evaluates
// the two canonical YES/NO x venue-A/venue-B strategies against the taker
// and maker thresholds.
package arbitrage

import (
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/bookfetcher"
	"github.com/mselser95/polymarket-arb/internal/fees"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Thresholds bundles the profitability and sizing knobs the detector
// evaluates candidates against (C6/§4.6).
type Thresholds struct {
	OpinionMinFee        float64
	SecondsPerYear       float64
	TakerThresholdCost   float64
	TakerThresholdSize   float64
	LiquidityMinAnnualized float64
	LiquidityMinSize     float64
}

// Detector evaluates matches against both venues' books and produces
// Opportunity candidates.
type Detector struct {
	thresholds Thresholds
	logger     *zap.Logger
}

// NewDetector builds a Detector.
func NewDetector(thresholds Thresholds, logger *zap.Logger) *Detector {
	return &Detector{thresholds: thresholds, logger: logger}
}

// leg describes one strategy's venue-A/venue-B book pairing before fee
// adjustment, so DetectTaker/DetectMaker can share the scoring logic.
type leg struct {
	strategy types.Strategy
	venueA   Venue
	venueB   Venue
}

// Venue bundles a side's book with the side it trades.
type Venue struct {
	Side  types.Side
	Token string
	Book  *types.OrderBookSnapshot
}

// legsFor builds the two canonical strategy pairings for a match's book
// bundle: buy YES on venue A against the complementary NO ask on venue B,
// or buy NO on venue A against the complementary YES ask on venue B. Each
// pairing buys a venue-A ask (taking liquidity) and a venue-B ask hedge,
// or is evaluated maker-side against the venue-A bid instead.
func legsFor(mb *bookfetcher.MatchBooks) []leg {
	return []leg{
		{strategy: types.StrategyYesANoB, venueA: Venue{Side: types.SideBuy, Token: mb.Match.YesTokenA, Book: mb.YesA}, venueB: Venue{Side: types.SideBuy, Token: mb.Match.NoTokenB, Book: mb.NoB}},
		{strategy: types.StrategyNoAYesB, venueA: Venue{Side: types.SideBuy, Token: mb.Match.NoTokenA, Book: mb.NoA}, venueB: Venue{Side: types.SideBuy, Token: mb.Match.YesTokenB, Book: mb.YesB}},
	}
}

// DetectTaker evaluates every ready match's two strategies against the
// taker thresholds and returns every passing candidate (not deduplicated
// by key; callers that need at most one per key should rank by
// AnnualizedRate themselves).
func (d *Detector) DetectTaker(matchBooks []*bookfetcher.MatchBooks) []*types.Opportunity {
	now := time.Now()
	var out []*types.Opportunity

	for _, mb := range matchBooks {
		if !mb.Ready() {
			continue
		}

		for _, l := range legsFor(mb) {
			opp := d.scoreLeg(mb, l, now, false)
			if opp == nil {
				continue
			}

			askA, okA := l.venueA.Book.BestAsk()
			askB, okB := l.venueB.Book.BestAsk()
			if !okA || !okB {
				continue
			}
			minSize := min(askA.Size, askB.Size)

			if opp.Cost < d.thresholds.TakerThresholdCost && minSize >= d.thresholds.TakerThresholdSize {
				OpportunitiesDetectedTotal.Inc()
				out = append(out, opp)
			} else {
				OpportunitiesRejectedTotal.WithLabelValues("taker-threshold").Inc()
			}
		}
	}

	return out
}

// DetectMaker evaluates every ready match's two strategies against the
// maker thresholds (venue-A bid side, venue-B ask hedge size, minimum
// annualized rate) and returns every passing candidate.
func (d *Detector) DetectMaker(matchBooks []*bookfetcher.MatchBooks) []*types.Opportunity {
	now := time.Now()
	var out []*types.Opportunity

	for _, mb := range matchBooks {
		if !mb.Ready() {
			continue
		}

		for _, l := range legsFor(mb) {
			bidA, okA := l.venueA.Book.BestBid()
			askB, okB := l.venueB.Book.BestAsk()
			if !okA || !okB {
				continue
			}
			if askB.Size < d.thresholds.LiquidityMinSize {
				OpportunitiesRejectedTotal.WithLabelValues("maker-size").Inc()
				continue
			}

			opp := d.scoreLeg(mb, l, now, true)
			if opp == nil {
				continue
			}
			opp.FirstLeg.Price = bidA.Price

			if opp.AnnualizedRate == nil || *opp.AnnualizedRate < d.thresholds.LiquidityMinAnnualized {
				OpportunitiesRejectedTotal.WithLabelValues("maker-annualized").Inc()
				continue
			}

			OpportunitiesDetectedTotal.Inc()
			out = append(out, opp)
		}
	}

	return out
}

// scoreLeg computes the effective combined cost and profitability for one
// strategy leg. For taker candidates it prices off both asks; for maker
// candidates the venue-A leg is priced at the current best bid (reflecting
// a resting order) while the venue-B hedge still prices off its ask.
func (d *Detector) scoreLeg(mb *bookfetcher.MatchBooks, l leg, now time.Time, maker bool) *types.Opportunity {
	var priceA float64
	var sizeA float64

	if maker {
		bidA, ok := l.venueA.Book.BestBid()
		if !ok {
			return nil
		}
		priceA = bidA.Price
		sizeA = bidA.Size
	} else {
		askA, ok := l.venueA.Book.BestAsk()
		if !ok {
			return nil
		}
		priceA = askA.Price
		sizeA = askA.Size
	}

	askB, ok := l.venueB.Book.BestAsk()
	if !ok {
		return nil
	}

	size := min(sizeA, askB.Size)
	if size <= 0 {
		return nil
	}

	var effA float64
	if maker {
		effA = priceA // maker orders carry no fee adjustment
	} else {
		effA = fees.EffectiveUnitCostOpinion(priceA, size, d.thresholds.OpinionMinFee)
	}
	effB := fees.EffectiveUnitCostPolymarket(askB.Price, 0)

	cost := effA + effB
	if cost <= 0 {
		return nil
	}
	profitRate := (1 - cost) / cost

	var annualized *float64
	if mb.Match.HasCutoff() {
		remaining := float64(*mb.Match.CutoffAt - now.Unix())
		if remaining > 0 {
			rate := profitRate * (d.thresholds.SecondsPerYear / remaining)
			annualized = &rate
		}
	}

	return &types.Opportunity{
		Match:    mb.Match,
		Strategy: l.strategy,
		FirstLeg: types.LegSpec{
			Venue: types.VenueA,
			Token: l.venueA.Token,
			Side:  l.venueA.Side,
			Price: priceA,
			Size:  size,
		},
		SecondLeg: types.LegSpec{
			Venue: types.VenueB,
			Token: l.venueB.Token,
			Side:  l.venueB.Side,
			Price: askB.Price,
			Size:  size,
		},
		Cost:           cost,
		ProfitRate:     profitRate,
		AnnualizedRate: annualized,
		MinSize:        size,
		Timestamp:      now,
		Maker:          maker,
	}
}
