package app

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/internal/hedger"
	"github.com/mselser95/polymarket-arb/internal/testutil"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

func newDisabledBreaker(t *testing.T) *circuitbreaker.BalanceCircuitBreaker {
	t.Helper()
	wallet := testutil.NewMockWalletClient()
	wallet.SetUSDCBalance(testutil.NewUSDCBigInt(0))

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   time.Minute,
		TradeMultiplier: 3.0,
		MinAbsolute:     5.0,
		HysteresisRatio: 1.5,
		WalletClient:    wallet,
		Address:         common.Address{},
		Logger:          zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	require.NoError(t, breaker.CheckBalance(context.Background()))
	require.False(t, breaker.IsEnabled())
	return breaker
}

func TestRunTakerCycle_SkipsWhenBreakerDisabled(t *testing.T) {
	store := &fakeStorage{}
	a := &App{
		logger:  zaptest.NewLogger(t),
		store:   store,
		breaker: newDisabledBreaker(t),
	}

	a.runTakerCycle(context.Background())

	assert.Zero(t, a.stats.OpportunitiesDetected)
	assert.Empty(t, store.stats, "no stats cycle should have run past the breaker gate")
}

func TestRunMakerCycle_SkipsWhenBreakerDisabled(t *testing.T) {
	store := &fakeStorage{}
	a := &App{
		logger:  zaptest.NewLogger(t),
		store:   store,
		breaker: newDisabledBreaker(t),
	}

	a.runMakerCycle(context.Background())

	assert.Empty(t, store.stats)
}

func TestHedge_DrainsAgainstVenueBAndPersistsFillAndHedge(t *testing.T) {
	venueB := &fakeAdapter{
		name:    "polymarket",
		orderID: "hedge-order-1",
		book: &types.OrderBookSnapshot{
			TokenID: "no-token-b",
			Asks:    []types.OrderBookLevel{{Price: 0.52, Size: 200}},
		},
	}
	store := &fakeStorage{}
	a := &App{
		logger: zaptest.NewLogger(t),
		store:  store,
		hedger: hedger.New(venueB, hedger.Config{StepDelay: time.Millisecond}, zaptest.NewLogger(t)),
	}

	match := testutil.CreateTestMatch("hedge-match")
	state := &types.LiquidityOrderState{
		Key:             "hedge-match|YA+NB",
		OrderID:         "resting-order-1",
		Match:           match,
		TokenA:          match.YesTokenA,
		PriceA:          0.48,
		SideA:           types.SideBuy,
		TokenB:          match.NoTokenB,
		SideB:           types.SideBuy,
		PriceBReference: 0.52,
	}

	a.hedge(context.Background(), state, 50.0)

	assert.InDelta(t, 50.0, state.Hedged, 1e-9)
	assert.Equal(t, int64(1), a.stats.FillsCount)
	assert.InDelta(t, 50.0, a.stats.FillsVolume, 1e-9)
	assert.InDelta(t, 50.0, a.stats.HedgeVolume, 1e-9)

	if assert.Len(t, store.fills, 1) {
		assert.Equal(t, "resting-order-1", store.fills[0].OrderID)
		assert.True(t, store.fills[0].Maker)
	}
	if assert.Len(t, store.hedge, 1) {
		assert.Equal(t, "hedge-match|YA+NB", store.hedge[0].OrderKey)
	}
	if assert.Len(t, venueB.placed, 1) {
		assert.InDelta(t, 50.0, venueB.placed[0].Size, 1e-9)
	}
}

func TestApp_HealthCheckerReadyLifecycle(t *testing.T) {
	hc := healthprobe.New()

	rec := httptest.NewRecorder()
	hc.Ready().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 503, rec.Code)

	hc.SetReady(true)
	rec = httptest.NewRecorder()
	hc.Ready().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 200, rec.Code)

	hc.SetReady(false)
	rec = httptest.NewRecorder()
	hc.Ready().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 503, rec.Code)
}
