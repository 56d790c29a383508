package arbitrage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/polymarket-arb/internal/bookfetcher"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

func snap(askPrice, askSize, bidPrice, bidSize float64) *types.OrderBookSnapshot {
	return &types.OrderBookSnapshot{
		Bids:      types.NormalizeLevels([]types.OrderBookLevel{{Price: bidPrice, Size: bidSize}}, true),
		Asks:      types.NormalizeLevels([]types.OrderBookLevel{{Price: askPrice, Size: askSize}}, false),
		Timestamp: time.Now(),
	}
}

func matchBooks(cutoff *int64) *bookfetcher.MatchBooks {
	match := &types.MarketMatch{
		Question:   "will-it-happen",
		VenueBSlug: "will-it-happen",
		YesTokenA:  "yesA",
		NoTokenA:   "noA",
		YesTokenB:  "yesB",
		NoTokenB:   "noB",
		CutoffAt:   cutoff,
	}
	yesA := snap(0.40, 500, 0.38, 500)
	yesB := snap(0.56, 500, 0.54, 500)

	return &bookfetcher.MatchBooks{
		Match: match,
		YesA:  yesA,
		YesB:  yesB,
		NoA:   types.DeriveNoSnapshot(yesA, "noA"),
		NoB:   types.DeriveNoSnapshot(yesB, "noB"),
	}
}

func testThresholds() Thresholds {
	return Thresholds{
		OpinionMinFee:          0.01,
		SecondsPerYear:         365 * 24 * 3600,
		TakerThresholdCost:     0.99,
		TakerThresholdSize:     200,
		LiquidityMinAnnualized: 0.10,
		LiquidityMinSize:       100,
	}
}

func TestDetectTaker_FindsProfitableCrossVenuePair(t *testing.T) {
	t.Parallel()

	mb := matchBooks(nil)
	d := NewDetector(testThresholds(), zaptest.NewLogger(t))

	opps := d.DetectTaker([]*bookfetcher.MatchBooks{mb})
	require.NotEmpty(t, opps)

	for _, o := range opps {
		assert.Less(t, o.Cost, 0.99)
		assert.False(t, o.Maker)
		assert.GreaterOrEqual(t, o.MinSize, 200.0)
	}
}

func TestDetectTaker_RejectsWhenSizeBelowThreshold(t *testing.T) {
	t.Parallel()

	mb := matchBooks(nil)
	mb.YesA.Asks[0].Size = 10
	mb.NoA.Asks[0].Size = 10

	thresholds := testThresholds()
	d := NewDetector(thresholds, zaptest.NewLogger(t))

	opps := d.DetectTaker([]*bookfetcher.MatchBooks{mb})
	assert.Empty(t, opps)
}

func TestDetectTaker_SkipsNotReadyMatch(t *testing.T) {
	t.Parallel()

	mb := &bookfetcher.MatchBooks{Match: &types.MarketMatch{VenueBSlug: "incomplete"}}
	d := NewDetector(testThresholds(), zaptest.NewLogger(t))

	opps := d.DetectTaker([]*bookfetcher.MatchBooks{mb})
	assert.Empty(t, opps)
}

func TestDetectMaker_ComputesAnnualizedRateFromCutoff(t *testing.T) {
	t.Parallel()

	cutoff := time.Now().Add(7 * 24 * time.Hour).Unix()
	mb := matchBooks(&cutoff)

	thresholds := testThresholds()
	thresholds.LiquidityMinAnnualized = 0
	d := NewDetector(thresholds, zaptest.NewLogger(t))

	opps := d.DetectMaker([]*bookfetcher.MatchBooks{mb})
	require.NotEmpty(t, opps)
	for _, o := range opps {
		require.NotNil(t, o.AnnualizedRate)
		assert.True(t, o.Maker)
	}
}

func TestDetectMaker_NoCutoffYieldsNilAnnualizedAndFailsThreshold(t *testing.T) {
	t.Parallel()

	mb := matchBooks(nil)
	thresholds := testThresholds()
	thresholds.LiquidityMinAnnualized = 0.01
	d := NewDetector(thresholds, zaptest.NewLogger(t))

	opps := d.DetectMaker([]*bookfetcher.MatchBooks{mb})
	assert.Empty(t, opps)
}

func TestDetectTaker_ReturnsOnlyTwoCanonicalStrategiesPerMatch(t *testing.T) {
	t.Parallel()

	mb := matchBooks(nil)
	d := NewDetector(testThresholds(), zaptest.NewLogger(t))

	// Only YA+NB clears the cost threshold with these books; NA+YB costs
	// 0.62 + 0.56 > 1, so exactly one opportunity comes back.
	opps := d.DetectTaker([]*bookfetcher.MatchBooks{mb})
	require.Len(t, opps, 1)

	keys := map[string]bool{}
	for _, o := range opps {
		keys[o.Key()] = true
	}
	assert.Len(t, keys, 1, "each match must produce at most one opportunity per distinct strategy")
}

func TestOpportunityKey_IsStablePerMatchAndStrategy(t *testing.T) {
	t.Parallel()

	mb := matchBooks(nil)
	d := NewDetector(testThresholds(), zaptest.NewLogger(t))
	opps := d.DetectTaker([]*bookfetcher.MatchBooks{mb})
	require.NotEmpty(t, opps)

	key := opps[0].Key()
	assert.Contains(t, key, mb.Match.VenueBSlug)
	assert.Contains(t, key, string(opps[0].Strategy))
}
