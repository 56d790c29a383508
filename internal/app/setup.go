package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/bookfetcher"
	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
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
	"github.com/mselser95/polymarket-arb/pkg/wallet"
)

// New wires every component from cfg and returns a ready-to-Run App.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{Mode: ModePro}
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		mode:          opts.Mode,
		healthChecker: healthprobe.New(),
		ctx:           ctx,
		cancel:        cancel,
	}
	a.stats.StartedAt = time.Now()

	a.venueA = setupVenueA(cfg, logger)

	venueB, err := setupVenueB(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue B: %w", err)
	}
	a.venueB = venueB

	loader, err := matchloader.New(cfg.MatchesFile, 0, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup match loader: %w", err)
	}
	a.loader = loader

	a.fetcher = bookfetcher.NewFetcher(a.venueA, a.venueB, cfg.OpinionOrderbookWorkers, cfg.MaxOrderbookSkew, logger)

	a.detector = arbitrage.NewDetector(arbitrage.Thresholds{
		OpinionMinFee:          cfg.OpinionMinFee,
		SecondsPerYear:         cfg.SecondsPerYear,
		TakerThresholdCost:     cfg.TakerThresholdCost,
		TakerThresholdSize:     cfg.TakerThresholdSize,
		LiquidityMinAnnualized: cfg.LiquidityMinAnnualized,
		LiquidityMinSize:       cfg.LiquidityMinSize,
	}, logger)

	a.executor = execution.NewExecutor(a.venueA, a.venueB, execution.Config{
		ImmediateExecEnabled: cfg.ImmediateExecEnabled,
		ImmediateMinPercent:  cfg.ImmediateMinPercent,
		ImmediateMaxPercent:  cfg.ImmediateMaxPercent,
		ImmediateOrderSize:   cfg.ImmediateOrderSize,
		ExecutionCooldown:    cfg.ExecutionCooldown,
		OrderMaxRetries:      cfg.OrderMaxRetries,
		OrderRetryDelay:      cfg.OrderRetryDelay,
		OpinionMinFee:        cfg.OpinionMinFee,
	}, logger, a.failStop)

	a.hedger = hedger.New(a.venueB, hedger.Config{StepDelay: cfg.HedgeStepDelay}, logger)

	a.provider = maker.NewProvider(a.venueA, a.venueB, a.detector, maker.Config{
		MaxLiquidityOrders:        cfg.MaxLiquidityOrders,
		LiquidityTargetSize:       cfg.LiquidityTargetSize,
		LiquidityPriceTolerance:   cfg.LiquidityPriceTolerance,
		LiquidityRequoteIncrement: cfg.LiquidityRequoteIncrement,
		OpinionMinFee:             cfg.OpinionMinFee,
		MarkedForRemovalTimeout:   cfg.MarkedForRemovalTimeout,
	}, logger, a.hedge)

	trk, err := tracker.NewTracker(a.venueA, a.provider, tracker.Config{
		StatusPollInterval: cfg.LiquidityStatusPollInterval,
		TradePollInterval:  cfg.LiquidityTradePollInterval,
		TradeLimit:         cfg.LiquidityTradeLimit,
	}, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup tracker: %w", err)
	}
	a.tracker = trk

	a.breaker = setupBalanceCircuitBreaker(ctx, cfg, logger)

	a.store = setupStorage(cfg, logger)

	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: a.healthChecker,
		BooksProvider: a.latestBooks.load,
	})

	return a, nil
}

// setupVenueA builds the venue-A (Opinion) adapter. Unlike venue B it never
// fails construction: a bad host or missing key only surfaces once a call
// is made against it.
func setupVenueA(cfg *config.Config, logger *zap.Logger) venue.Adapter {
	return venue.NewOpinionAdapter(venue.OpinionConfig{
		Host:        cfg.OpinionHost,
		APIKey:      cfg.OpinionAPIKey,
		MaxRPS:      cfg.OpinionMaxRPS,
		HTTPTimeout: 15 * time.Second,
		Logger:      logger,
	})
}

// setupVenueB builds the venue-B (Polymarket-style CLOB) adapter. The
// signing key and proxy/signature-type knobs are read straight from the
// environment, the same way the standalone balance/approve ops commands
// read them, rather than through config.Config: they are secrets and
// account-shape knobs, not tunables.
func setupVenueB(cfg *config.Config, logger *zap.Logger) (venue.Adapter, error) {
	sigType := 0
	if raw := os.Getenv("POLYMARKET_SIGNATURE_TYPE"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid POLYMARKET_SIGNATURE_TYPE: %w", err)
		}
		sigType = parsed
	}

	return venue.NewPolymarketAdapter(venue.PolymarketConfig{
		BaseURL:       cfg.PolymarketCLOBURL,
		APIKey:        cfg.PolymarketAPIKey,
		Secret:        cfg.PolymarketSecret,
		Passphrase:    cfg.PolymarketPassphrase,
		PrivateKey:    os.Getenv("POLYMARKET_PRIVATE_KEY"),
		ProxyAddress:  os.Getenv("POLYMARKET_PROXY_ADDRESS"),
		SignatureType: sigType,
		BooksChunk:    cfg.PolymarketBooksChunk,
		HTTPTimeout:   15 * time.Second,
		Logger:        logger,
	})
}

// setupBalanceCircuitBreaker wires the proactive balance pre-check (C16).
// A missing or malformed private key, or an unreachable RPC endpoint,
// disables the breaker with a warning rather than failing the whole run:
// the hard fail-stop in failStop still protects against balance exhaustion
// regardless.
func setupBalanceCircuitBreaker(ctx context.Context, cfg *config.Config, logger *zap.Logger) *circuitbreaker.BalanceCircuitBreaker {
	if !cfg.CircuitBreakerEnabled {
		return nil
	}

	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		logger.Warn("circuit-breaker-disabled", zap.String("reason", "POLYMARKET_PRIVATE_KEY not set"))
		return nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		logger.Warn("circuit-breaker-disabled", zap.String("reason", "invalid private key"), zap.Error(err))
		return nil
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	rpcURL := os.Getenv("POLYGON_RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://polygon-rpc.com"
	}

	walletClient, err := wallet.NewClient(rpcURL, logger)
	if err != nil {
		logger.Warn("circuit-breaker-disabled", zap.String("reason", "wallet client setup failed"), zap.Error(err))
		return nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		WalletClient:    walletClient,
		Address:         address,
		Logger:          logger,
	})
	if err != nil {
		logger.Warn("circuit-breaker-disabled", zap.String("reason", "construction failed"), zap.Error(err))
		return nil
	}

	breaker.Start(ctx)
	return breaker
}

// setupStorage selects the persistence backend per cfg.StorageMode,
// degrading to console storage if a postgres connection can't be
// established.
func setupStorage(cfg *config.Config, logger *zap.Logger) storage.Storage {
	if cfg.StorageMode != "postgres" {
		return storage.NewConsoleStorage(logger)
	}

	pg, err := storage.NewPostgresStorage(&storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn("postgres-storage-unavailable-falling-back-to-console", zap.Error(err))
		return storage.NewConsoleStorage(logger)
	}
	return pg
}
