package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

func testOpportunity() *types.Opportunity {
	annualized := 0.42
	return &types.Opportunity{
		Match:    &types.MarketMatch{VenueBSlug: "will-it-happen", Question: "Will X happen?"},
		Strategy: types.StrategyYesANoB,
		FirstLeg: types.LegSpec{Venue: types.VenueA, Token: "yesA", Side: types.SideBuy, Price: 0.48, Size: 100},
		SecondLeg: types.LegSpec{
			Venue: types.VenueB, Token: "noB", Side: types.SideBuy, Price: 0.51, Size: 100,
		},
		Cost:           0.99,
		ProfitRate:     0.0101,
		AnnualizedRate: &annualized,
		MinSize:        100,
		Timestamp:      time.Now(),
	}
}

func testFill() *FillRecord {
	return &FillRecord{
		OrderID:   "order-123",
		Venue:     types.VenueA,
		MatchSlug: "will-it-happen",
		TokenID:   "yesA",
		Side:      types.SideBuy,
		Price:     0.48,
		Size:      50,
		Maker:     true,
		Timestamp: time.Now(),
	}
}

func testHedge() *HedgeRecord {
	return &HedgeRecord{
		OrderKey:  "mk-1|yesA|BUY|will-it-happen",
		MatchSlug: "will-it-happen",
		TokenID:   "noB",
		Side:      types.SideBuy,
		Price:     0.51,
		Size:      50,
		Timestamp: time.Now(),
	}
}

func testStats() *types.EngineStats {
	now := time.Now()
	return &types.EngineStats{
		FillsCount:            3,
		FillsVolume:           150,
		HedgeCount:            2,
		HedgeVolume:           100,
		HedgeFailures:         1,
		UntrackedTrades:       0,
		OpportunitiesDetected: 10,
		OpportunitiesExecuted: 3,
		DedupedExecutions:     1,
		StartedAt:             now.Add(-time.Hour),
		LastStatsAt:           now,
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestConsoleStorage_StoreOpportunity(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	opp := testOpportunity()
	var err error
	output := captureStdout(t, func() {
		err = storage.StoreOpportunity(context.Background(), opp)
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !bytes.Contains([]byte(output), []byte("ARBITRAGE OPPORTUNITY DETECTED")) {
		t.Error("expected output to contain 'ARBITRAGE OPPORTUNITY DETECTED'")
	}
	if !bytes.Contains([]byte(output), []byte(opp.Match.VenueBSlug)) {
		t.Errorf("expected output to contain match slug %s", opp.Match.VenueBSlug)
	}
}

func TestConsoleStorage_StoreFill(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	fill := testFill()
	var err error
	output := captureStdout(t, func() {
		err = storage.StoreFill(context.Background(), fill)
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !bytes.Contains([]byte(output), []byte("FILL")) {
		t.Error("expected output to contain 'FILL'")
	}
	if !bytes.Contains([]byte(output), []byte(fill.OrderID)) {
		t.Errorf("expected output to contain order id %s", fill.OrderID)
	}
}

func TestConsoleStorage_StoreHedge(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	hedge := testHedge()
	var err error
	output := captureStdout(t, func() {
		err = storage.StoreHedge(context.Background(), hedge)
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !bytes.Contains([]byte(output), []byte("HEDGE")) {
		t.Error("expected output to contain 'HEDGE'")
	}
}

func TestConsoleStorage_StoreStats(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	stats := testStats()
	var err error
	output := captureStdout(t, func() {
		err = storage.StoreStats(context.Background(), stats)
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !bytes.Contains([]byte(output), []byte("ENGINE STATS")) {
		t.Error("expected output to contain 'ENGINE STATS'")
	}
}

func TestConsoleStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	if err := storage.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: logger}
	opp := testOpportunity()

	mock.ExpectExec("INSERT INTO opportunities").
		WithArgs(
			opp.Match.VenueBSlug, opp.Match.Question, string(opp.Strategy), opp.Maker,
			string(opp.FirstLeg.Venue), opp.FirstLeg.Token, string(opp.FirstLeg.Side), opp.FirstLeg.Price, opp.FirstLeg.Size,
			string(opp.SecondLeg.Venue), opp.SecondLeg.Token, string(opp.SecondLeg.Side), opp.SecondLeg.Price, opp.SecondLeg.Size,
			opp.Cost, opp.ProfitRate, *opp.AnnualizedRate, opp.MinSize, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := storage.StoreOpportunity(context.Background(), opp); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity_Error(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: logger}
	opp := testOpportunity()

	mock.ExpectExec("INSERT INTO opportunities").
		WithArgs(
			opp.Match.VenueBSlug, opp.Match.Question, string(opp.Strategy), opp.Maker,
			string(opp.FirstLeg.Venue), opp.FirstLeg.Token, string(opp.FirstLeg.Side), opp.FirstLeg.Price, opp.FirstLeg.Size,
			string(opp.SecondLeg.Venue), opp.SecondLeg.Token, string(opp.SecondLeg.Side), opp.SecondLeg.Price, opp.SecondLeg.Size,
			opp.Cost, opp.ProfitRate, *opp.AnnualizedRate, opp.MinSize, sqlmock.AnyArg(),
		).
		WillReturnError(sqlmock.ErrCancelled)

	if err := storage.StoreOpportunity(context.Background(), opp); err == nil {
		t.Error("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreFill(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: logger}
	fill := testFill()

	mock.ExpectExec("INSERT INTO fills").
		WithArgs(fill.OrderID, string(fill.Venue), fill.MatchSlug, fill.TokenID, string(fill.Side),
			fill.Price, fill.Size, fill.Maker, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := storage.StoreFill(context.Background(), fill); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreHedge(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: logger}
	hedge := testHedge()

	mock.ExpectExec("INSERT INTO hedges").
		WithArgs(hedge.OrderKey, hedge.MatchSlug, hedge.TokenID, string(hedge.Side), hedge.Price, hedge.Size, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := storage.StoreHedge(context.Background(), hedge); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreStats(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: logger}
	stats := testStats()

	mock.ExpectExec("INSERT INTO engine_stats").
		WithArgs(
			stats.FillsCount, stats.FillsVolume, stats.HedgeCount, stats.HedgeVolume, stats.HedgeFailures,
			stats.UntrackedTrades, stats.OpportunitiesDetected, stats.OpportunitiesExecuted,
			stats.DedupedExecutions, stats.UptimeSeconds(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := storage.StoreStats(context.Background(), stats); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	mock.ExpectClose()

	if err := storage.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStorage_Interface(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	var _ Storage = NewConsoleStorage(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ Storage = &PostgresStorage{db: db, logger: logger}
}
