package hedger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

type fakeHedgeAdapter struct {
	mu     sync.Mutex
	books  []*types.OrderBookSnapshot // consumed in order, last one repeats
	placed []venue.PlaceOrderRequest
	placeErr error
}

func (f *fakeHedgeAdapter) FetchBook(ctx context.Context, token string) (*types.OrderBookSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.books) == 0 {
		return &types.OrderBookSnapshot{}, nil
	}
	book := f.books[0]
	if len(f.books) > 1 {
		f.books = f.books[1:]
	}
	return book, nil
}
func (f *fakeHedgeAdapter) FetchBooksBulk(ctx context.Context, tokens []string) (map[string]*types.OrderBookSnapshot, error) {
	return nil, errors.New("unsupported")
}
func (f *fakeHedgeAdapter) PlaceOrder(ctx context.Context, req venue.PlaceOrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.placed = append(f.placed, req)
	return "hedge-order", nil
}
func (f *fakeHedgeAdapter) Cancel(ctx context.Context, orderID string) error { return nil }
func (f *fakeHedgeAdapter) GetOrder(ctx context.Context, orderID string) (venue.OrderStatusResult, error) {
	return venue.OrderStatusResult{}, nil
}
func (f *fakeHedgeAdapter) GetRecentTrades(ctx context.Context, limit int) ([]types.Trade, error) {
	return nil, nil
}
func (f *fakeHedgeAdapter) Name() string { return "polymarket" }

func bookWithAsk(price, size float64) *types.OrderBookSnapshot {
	return &types.OrderBookSnapshot{
		Asks: []types.OrderBookLevel{{Price: price, Size: size}},
	}
}

func testState() *types.LiquidityOrderState {
	return &types.LiquidityOrderState{
		OrderID: "order-1",
		TokenB:  "token-b",
		SideB:   types.SideBuy,
		Match:   &types.MarketMatch{NegRiskB: true},
	}
}

func TestHedge_SingleLevelDrainsFully(t *testing.T) {
	t.Parallel()

	adapter := &fakeHedgeAdapter{books: []*types.OrderBookSnapshot{bookWithAsk(0.50, 500)}}
	h := New(adapter, Config{StepDelay: time.Millisecond}, zaptest.NewLogger(t))

	state := testState()
	h.Hedge(context.Background(), state, 250)

	require.Len(t, adapter.placed, 1)
	assert.Equal(t, 250.0, adapter.placed[0].Size)
	assert.Equal(t, 0.50, adapter.placed[0].Price)
	assert.True(t, adapter.placed[0].NegRisk)
	assert.Equal(t, 250.0, state.Hedged)
}

func TestHedge_WalksMultipleLevelsWhenTopIsThin(t *testing.T) {
	t.Parallel()

	adapter := &fakeHedgeAdapter{books: []*types.OrderBookSnapshot{
		bookWithAsk(0.50, 180),
		bookWithAsk(0.51, 120),
	}}
	h := New(adapter, Config{StepDelay: time.Millisecond}, zaptest.NewLogger(t))

	state := testState()
	h.Hedge(context.Background(), state, 300)

	require.Len(t, adapter.placed, 2)
	assert.Equal(t, 180.0, adapter.placed[0].Size)
	assert.Equal(t, 120.0, adapter.placed[1].Size)
	assert.Equal(t, 300.0, state.Hedged)
}

func TestHedge_NoLiquidityStopsWithoutPlacing(t *testing.T) {
	t.Parallel()

	adapter := &fakeHedgeAdapter{books: []*types.OrderBookSnapshot{{}}}
	h := New(adapter, Config{StepDelay: time.Millisecond}, zaptest.NewLogger(t))

	state := testState()
	h.Hedge(context.Background(), state, 100)

	assert.Empty(t, adapter.placed)
	assert.Equal(t, 0.0, state.Hedged)
}

func TestHedge_PlaceOrderFailureStopsLoop(t *testing.T) {
	t.Parallel()

	adapter := &fakeHedgeAdapter{
		books:    []*types.OrderBookSnapshot{bookWithAsk(0.50, 500)},
		placeErr: errors.New("network error"),
	}
	h := New(adapter, Config{StepDelay: time.Millisecond}, zaptest.NewLogger(t))

	state := testState()
	h.Hedge(context.Background(), state, 100)

	assert.Empty(t, adapter.placed)
	assert.Equal(t, 0.0, state.Hedged)
}
