// Package app wires every engine component into a runnable process: the
// two venue adapters, the book fetcher, the opportunity detector, the
// taker executor, the maker provider and its order tracker and hedger, the
// balance circuit breaker, the HTTP observability surface, and the
// persistence backend. It also drives the two top-level loops (C11) and
// owns the fail-stop and graceful-shutdown sequencing (C12).
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/bookfetcher"
	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/execution"
	"github.com/mselser95/polymarket-arb/internal/hedger"
	"github.com/mselser95/polymarket-arb/internal/maker"
	"github.com/mselser95/polymarket-arb/internal/matchloader"
	"github.com/mselser95/polymarket-arb/internal/storage"
	"github.com/mselser95/polymarket-arb/internal/tracker"
	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/httpserver"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Mode selects which of the two top-level loops Run drives.
type Mode string

const (
	// ModePro runs the taker loop continuously.
	ModePro Mode = "pro"
	// ModeProOnce runs a single taker scan-and-execute cycle and returns.
	ModeProOnce Mode = "pro-once"
	// ModeLiquidity runs the maker loop (and its tracker/hedger) continuously.
	ModeLiquidity Mode = "liquidity"
	// ModeLiquidityOnce runs a single maker reconciliation cycle and returns.
	ModeLiquidityOnce Mode = "liquidity-once"
)

// Options configures one run of the engine.
type Options struct {
	Mode Mode
}

// App bundles every wired component for one run of the engine.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	mode   Mode

	venueA venue.Adapter
	venueB venue.Adapter

	loader   *matchloader.Loader
	fetcher  *bookfetcher.Fetcher
	detector *arbitrage.Detector
	executor *execution.Executor
	hedger   *hedger.Hedger
	provider *maker.Provider
	tracker  *tracker.Tracker

	breaker *circuitbreaker.BalanceCircuitBreaker // nil when disabled or unable to start

	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	store         storage.Storage

	stats   types.EngineStats
	statsMu sync.Mutex

	latestBooks booksHolder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// booksHolder atomically swaps the latest fetch cycle's results so the HTTP
// books handler never blocks a cycle in progress.
type booksHolder struct {
	mu    sync.RWMutex
	books []*bookfetcher.MatchBooks
}

func (b *booksHolder) store(books []*bookfetcher.MatchBooks) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.books = books
}

func (b *booksHolder) load() []*bookfetcher.MatchBooks {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.books
}
