package maker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/bookfetcher"
	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

type fakeMakerAdapter struct {
	mu      sync.Mutex
	orderN  int
	placed  map[string]venue.PlaceOrderRequest
	status  map[string]venue.OrderStatusResult
	cancels []string
}

func newFakeMakerAdapter() *fakeMakerAdapter {
	return &fakeMakerAdapter{
		placed: map[string]venue.PlaceOrderRequest{},
		status: map[string]venue.OrderStatusResult{},
	}
}

func (f *fakeMakerAdapter) FetchBook(ctx context.Context, token string) (*types.OrderBookSnapshot, error) {
	return nil, errors.New("unsupported")
}
func (f *fakeMakerAdapter) FetchBooksBulk(ctx context.Context, tokens []string) (map[string]*types.OrderBookSnapshot, error) {
	return nil, errors.New("unsupported")
}
func (f *fakeMakerAdapter) PlaceOrder(ctx context.Context, req venue.PlaceOrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderN++
	id := "order-" + string(rune('0'+f.orderN))
	f.placed[id] = req
	f.status[id] = venue.OrderStatusResult{Status: types.StatusPending, Filled: 0, Total: req.Size}
	return id, nil
}
func (f *fakeMakerAdapter) Cancel(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, orderID)
	s := f.status[orderID]
	s.Status = types.StatusCancelled
	f.status[orderID] = s
	return nil
}
func (f *fakeMakerAdapter) GetOrder(ctx context.Context, orderID string) (venue.OrderStatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.status[orderID]
	if !ok {
		return venue.OrderStatusResult{}, errors.New("not found")
	}
	return s, nil
}
func (f *fakeMakerAdapter) GetRecentTrades(ctx context.Context, limit int) ([]types.Trade, error) {
	return nil, nil
}
func (f *fakeMakerAdapter) Name() string { return "opinion" }

func makerMatchBooks() *bookfetcher.MatchBooks {
	cutoff := time.Now().Add(7 * 24 * time.Hour).Unix()
	match := &types.MarketMatch{
		Question:   "will-it-happen",
		VenueBSlug: "will-it-happen",
		YesTokenA:  "yesA",
		NoTokenA:   "noA",
		YesTokenB:  "yesB",
		NoTokenB:   "noB",
		CutoffAt:   &cutoff,
	}
	yesA := &types.OrderBookSnapshot{
		Bids:      types.NormalizeLevels([]types.OrderBookLevel{{Price: 0.38, Size: 500}}, true),
		Asks:      types.NormalizeLevels([]types.OrderBookLevel{{Price: 0.40, Size: 500}}, false),
		Timestamp: time.Now(),
	}
	yesB := &types.OrderBookSnapshot{
		Bids:      types.NormalizeLevels([]types.OrderBookLevel{{Price: 0.54, Size: 500}}, true),
		Asks:      types.NormalizeLevels([]types.OrderBookLevel{{Price: 0.56, Size: 500}}, false),
		Timestamp: time.Now(),
	}

	return &bookfetcher.MatchBooks{
		Match: match,
		YesA:  yesA,
		YesB:  yesB,
		NoA:   types.DeriveNoSnapshot(yesA, "noA"),
		NoB:   types.DeriveNoSnapshot(yesB, "noB"),
	}
}

func testMakerConfig() Config {
	return Config{
		MaxLiquidityOrders:        10,
		LiquidityTargetSize:       200,
		LiquidityPriceTolerance:   0.01,
		LiquidityRequoteIncrement: 0.005,
		OpinionMinFee:             0.01,
		MarkedForRemovalTimeout:   5 * time.Minute,
		CancelDwell:               time.Millisecond,
	}
}

func TestRunCycle_PlacesNewOrdersForDesiredCandidates(t *testing.T) {
	t.Parallel()

	a := newFakeMakerAdapter()
	b := newFakeMakerAdapter()
	detector := arbitrage.NewDetector(arbitrage.Thresholds{
		OpinionMinFee:          0.01,
		SecondsPerYear:         365 * 24 * 3600,
		LiquidityMinAnnualized: 0,
		LiquidityMinSize:       100,
	}, zaptest.NewLogger(t))

	p := NewProvider(a, b, detector, testMakerConfig(), zaptest.NewLogger(t), nil)
	p.RunCycle(context.Background(), []*bookfetcher.MatchBooks{makerMatchBooks()})

	tracked := p.TrackedOrders()
	assert.NotEmpty(t, tracked)
	assert.NotEmpty(t, a.placed)
}

func TestRunCycle_CancelsOrderNotInDesiredSetAnymore(t *testing.T) {
	t.Parallel()

	a := newFakeMakerAdapter()
	b := newFakeMakerAdapter()
	detector := arbitrage.NewDetector(arbitrage.Thresholds{
		OpinionMinFee:          0.01,
		SecondsPerYear:         365 * 24 * 3600,
		LiquidityMinAnnualized: 0,
		LiquidityMinSize:       100,
	}, zaptest.NewLogger(t))

	p := NewProvider(a, b, detector, testMakerConfig(), zaptest.NewLogger(t), nil)
	mb := makerMatchBooks()
	p.RunCycle(context.Background(), []*bookfetcher.MatchBooks{mb})
	require.NotEmpty(t, p.TrackedOrders())

	// Starve liquidity_min_size by thinning the venue-B hedge ask so no
	// candidate passes next cycle; existing resting orders should cancel.
	mb.YesB.Asks[0].Size = 1
	mb.NoB.Asks[0].Size = 1

	detector2 := arbitrage.NewDetector(arbitrage.Thresholds{
		OpinionMinFee:          0.01,
		SecondsPerYear:         365 * 24 * 3600,
		LiquidityMinAnnualized: 0,
		LiquidityMinSize:       100,
	}, zaptest.NewLogger(t))
	p.detector = detector2
	p.RunCycle(context.Background(), []*bookfetcher.MatchBooks{mb})

	assert.NotEmpty(t, a.cancels)
}

func TestApplyStatus_ForwardsFillDeltaToHedger(t *testing.T) {
	t.Parallel()

	a := newFakeMakerAdapter()
	b := newFakeMakerAdapter()
	detector := arbitrage.NewDetector(arbitrage.Thresholds{
		OpinionMinFee:          0.01,
		SecondsPerYear:         365 * 24 * 3600,
		LiquidityMinAnnualized: 0,
		LiquidityMinSize:       100,
	}, zaptest.NewLogger(t))

	var gotDelta float64
	var mu sync.Mutex
	hedge := func(ctx context.Context, state *types.LiquidityOrderState, delta float64) {
		mu.Lock()
		defer mu.Unlock()
		gotDelta = delta
	}

	p := NewProvider(a, b, detector, testMakerConfig(), zaptest.NewLogger(t), hedge)
	p.RunCycle(context.Background(), []*bookfetcher.MatchBooks{makerMatchBooks()})
	tracked := p.TrackedOrders()
	require.NotEmpty(t, tracked)

	p.ApplyStatus(context.Background(), tracked[0].OrderID, types.StatusPartial, 50, tracked[0].OrderSizeA)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50.0, gotDelta)
}

func TestApplyStatusThenTradeFill_SameFillIsHedgedOnlyOnce(t *testing.T) {
	t.Parallel()

	a := newFakeMakerAdapter()
	b := newFakeMakerAdapter()
	detector := arbitrage.NewDetector(arbitrage.Thresholds{
		OpinionMinFee:          0.01,
		SecondsPerYear:         365 * 24 * 3600,
		LiquidityMinAnnualized: 0,
		LiquidityMinSize:       100,
	}, zaptest.NewLogger(t))

	var totalHedged float64
	var mu sync.Mutex
	hedge := func(ctx context.Context, state *types.LiquidityOrderState, delta float64) {
		mu.Lock()
		defer mu.Unlock()
		totalHedged += delta
		state.Hedged += delta
	}

	p := NewProvider(a, b, detector, testMakerConfig(), zaptest.NewLogger(t), hedge)
	p.RunCycle(context.Background(), []*bookfetcher.MatchBooks{makerMatchBooks()})
	tracked := p.TrackedOrders()
	require.NotEmpty(t, tracked)
	orderID := tracked[0].OrderID

	// The status stream observes an absolute filled total of 250.
	p.ApplyStatus(context.Background(), orderID, types.StatusPartial, 250, tracked[0].OrderSizeA)
	// The trade-tape stream later reports the same underlying fill as a
	// newly-seen trade id, worth 250 in trade volume.
	p.ApplyTradeFill(context.Background(), orderID, 250)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 250.0, totalHedged, "the same 250-unit fill observed by both streams must be hedged once")
}

func TestApplyStatus_TerminalSoftRemovesFromByKey(t *testing.T) {
	t.Parallel()

	a := newFakeMakerAdapter()
	b := newFakeMakerAdapter()
	detector := arbitrage.NewDetector(arbitrage.Thresholds{
		OpinionMinFee:          0.01,
		SecondsPerYear:         365 * 24 * 3600,
		LiquidityMinAnnualized: 0,
		LiquidityMinSize:       100,
	}, zaptest.NewLogger(t))

	p := NewProvider(a, b, detector, testMakerConfig(), zaptest.NewLogger(t), nil)
	p.RunCycle(context.Background(), []*bookfetcher.MatchBooks{makerMatchBooks()})
	tracked := p.TrackedOrders()
	require.NotEmpty(t, tracked)

	p.ApplyStatus(context.Background(), tracked[0].OrderID, types.StatusFilled, tracked[0].OrderSizeA, tracked[0].OrderSizeA)

	p.mu.Lock()
	_, stillByKey := p.byKey[tracked[0].Key]
	p.mu.Unlock()
	assert.False(t, stillByKey)

	// Still tracked by id until the force-removal sweep.
	assert.NotEmpty(t, p.TrackedOrders())
}

func TestDrain_ReturnsTrueWhenByIDEmpty(t *testing.T) {
	t.Parallel()

	a := newFakeMakerAdapter()
	b := newFakeMakerAdapter()
	detector := arbitrage.NewDetector(arbitrage.Thresholds{}, zaptest.NewLogger(t))
	p := NewProvider(a, b, detector, testMakerConfig(), zaptest.NewLogger(t), nil)

	ok := p.Drain(context.Background(), 50*time.Millisecond)
	assert.True(t, ok)
}
