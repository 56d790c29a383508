package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Polymarket API
	PolymarketWSURL      string
	PolymarketGammaURL   string
	PolymarketAPIKey     string
	PolymarketSecret     string
	PolymarketPassphrase string

	// Market Discovery
	DiscoveryPollInterval time.Duration
	DiscoveryMarketLimit  int
	MaxMarketDuration     time.Duration // Only subscribe to markets expiring within this duration

	// Market Cleanup
	CleanupInterval time.Duration // How often cleanup command checks for stale markets

	// WebSocket
	WSPoolSize              int // Number of WebSocket connections (default: 20)
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// Arbitrage Detection
	ArbThreshold         float64
	ArbMinTradeSize      float64
	ArbMaxTradeSize      float64
	ArbDetectionInterval time.Duration
	ArbMakerFee          float64
	ArbTakerFee          float64

	// Execution
	ExecutionMode            string
	ExecutionMaxPositionSize float64

	// Circuit Breaker
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerTradeMultiplier float64
	CircuitBreakerMinAbsolute     float64
	CircuitBreakerHysteresisRatio float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Engine: book fetcher / rate limiting (C2, C4)
	OrderbookBatchSize     int
	PolymarketBooksChunk   int
	OpinionOrderbookWorkers int
	OpinionMaxRPS          float64
	MaxOrderbookSkew       time.Duration

	// Engine: order placement / retry (C7, C8)
	OrderMaxRetries  int
	OrderRetryDelay  time.Duration
	PriceDecimals    int
	OpinionMinFee    float64

	// Engine: profitability thresholds (C6)
	ROIReferenceSize     float64
	SecondsPerYear       float64
	MinAnnualizedPercent float64
	TakerThresholdCost   float64
	TakerThresholdSize   float64

	// Engine: taker executor (C7)
	ImmediateExecEnabled    bool
	ImmediateMinPercent     float64
	ImmediateMaxPercent     float64
	ImmediateOrderSize      float64
	ExecutionCooldown       time.Duration

	// Engine: maker / liquidity provider (C8, C9, C10)
	LiquidityMinAnnualized       float64
	LiquidityMinSize             float64
	LiquidityTargetSize          float64
	MaxLiquidityOrders           int
	LiquidityPriceTolerance      float64
	LiquidityStatusPollInterval  time.Duration
	LiquidityLoopInterval        time.Duration
	LiquidityRequoteIncrement    float64
	LiquidityWaitTimeout         time.Duration
	LiquidityTradePollInterval   time.Duration
	LiquidityTradeLimit          int
	LiquidityDebug               bool
	MarkedForRemovalTimeout      time.Duration
	HedgeStepDelay               time.Duration

	// Engine: loop driver (C11)
	ProLoopInterval       time.Duration
	PendingExecTimeout    time.Duration
	PendingPollInterval   time.Duration
	AccountMonitorInterval time.Duration
	OrderStatusFallbackAfter time.Duration

	// Engine: matches file (external collaborator input, §6)
	MatchesFile string

	// Engine: venue A (Opinion) connection
	OpinionHost       string
	OpinionAPIKey     string
	OpinionPrivateKey string
	OpinionChainID    int64

	// Engine: venue B (Polymarket-style CLOB) connection
	PolymarketCLOBURL string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Polymarket API defaults
		PolymarketWSURL:      getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		PolymarketGammaURL:   getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		PolymarketAPIKey:     os.Getenv("POLYMARKET_API_KEY"),
		PolymarketSecret:     os.Getenv("POLYMARKET_SECRET"),
		PolymarketPassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),

		// Market Discovery defaults
		DiscoveryPollInterval: getDurationOrDefault("DISCOVERY_POLL_INTERVAL", 30*time.Second),
		DiscoveryMarketLimit:  getIntOrDefault("DISCOVERY_MARKET_LIMIT", 1000),
		MaxMarketDuration:     getDurationOrDefault("ARB_MAX_MARKET_DURATION", 0), // 0 = unlimited

		// Market Cleanup defaults
		CleanupInterval: getDurationOrDefault("CLEANUP_CHECK_INTERVAL", 5*time.Minute),

		// WebSocket defaults
		WSPoolSize:              getIntOrDefault("WS_POOL_SIZE", 20),
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 10000),

		// Arbitrage defaults
		ArbThreshold:         getFloat64OrDefault("ARB_THRESHOLD", 0.995),
		ArbMinTradeSize:      getFloat64OrDefault("ARB_MIN_TRADE_SIZE", 1.0),
		ArbMaxTradeSize:      getFloat64OrDefault("ARB_MAX_TRADE_SIZE", 2.0),
		ArbDetectionInterval: getDurationOrDefault("ARB_DETECTION_INTERVAL", 100*time.Millisecond),
		ArbMakerFee:          getFloat64OrDefault("ARB_MAKER_FEE", 0.0000), // 0% maker fee on Polymarket
		ArbTakerFee:          getFloat64OrDefault("ARB_TAKER_FEE", 0.0100), // 1% taker fee

		// Execution defaults
		ExecutionMode:            getEnvOrDefault("EXECUTION_MODE", "paper"),
		ExecutionMaxPositionSize: getFloat64OrDefault("EXECUTION_MAX_POSITION_SIZE", 1000.0),

		// Circuit Breaker defaults
		CircuitBreakerEnabled:         getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:   getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", 300*time.Second),
		CircuitBreakerTradeMultiplier: getFloat64OrDefault("CIRCUIT_BREAKER_TRADE_MULTIPLIER", 3.0),
		CircuitBreakerMinAbsolute:     getFloat64OrDefault("CIRCUIT_BREAKER_MIN_ABSOLUTE", 5.0),
		CircuitBreakerHysteresisRatio: getFloat64OrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.5),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polymarket"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polymarket123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polymarket_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Book fetcher / rate limiting defaults
		OrderbookBatchSize:      getIntOrDefault("ORDERBOOK_BATCH_SIZE", 25),
		PolymarketBooksChunk:    getIntOrDefault("POLYMARKET_BOOKS_CHUNK", 50),
		OpinionOrderbookWorkers: getIntOrDefault("OPINION_ORDERBOOK_WORKERS", 8),
		OpinionMaxRPS:           getFloat64OrDefault("OPINION_MAX_RPS", 5.0),
		MaxOrderbookSkew:        getDurationOrDefault("MAX_ORDERBOOK_SKEW", 2*time.Second),

		// Order placement / retry defaults
		OrderMaxRetries: getIntOrDefault("ORDER_MAX_RETRIES", 3),
		OrderRetryDelay: getDurationOrDefault("ORDER_RETRY_DELAY", 500*time.Millisecond),
		PriceDecimals:   getIntOrDefault("PRICE_DECIMALS", 3),
		OpinionMinFee:   getFloat64OrDefault("OPINION_MIN_FEE", 0.01),

		// Profitability threshold defaults
		ROIReferenceSize:     getFloat64OrDefault("ROI_REFERENCE_SIZE", 1000.0),
		SecondsPerYear:       getFloat64OrDefault("SECONDS_PER_YEAR", 365*24*3600),
		MinAnnualizedPercent: getFloat64OrDefault("MIN_ANNUALIZED_PERCENT", 0.05),
		TakerThresholdCost:   getFloat64OrDefault("TAKER_THRESHOLD_COST", 0.99),
		TakerThresholdSize:   getFloat64OrDefault("TAKER_THRESHOLD_SIZE", 200.0),

		// Taker executor defaults
		ImmediateExecEnabled: getBoolOrDefault("IMMEDIATE_EXEC_ENABLED", true),
		ImmediateMinPercent:  getFloat64OrDefault("IMMEDIATE_MIN_PERCENT", 0.05),
		ImmediateMaxPercent:  getFloat64OrDefault("IMMEDIATE_MAX_PERCENT", 2.00),
		ImmediateOrderSize:   getFloat64OrDefault("IMMEDIATE_ORDER_SIZE", 500.0),
		ExecutionCooldown:    getDurationOrDefault("EXECUTION_COOLDOWN", 5*time.Second),

		// Maker / liquidity provider defaults
		LiquidityMinAnnualized:      getFloat64OrDefault("LIQUIDITY_MIN_ANNUALIZED", 0.10),
		LiquidityMinSize:            getFloat64OrDefault("LIQUIDITY_MIN_SIZE", 100.0),
		LiquidityTargetSize:         getFloat64OrDefault("LIQUIDITY_TARGET_SIZE", 200.0),
		MaxLiquidityOrders:          getIntOrDefault("MAX_LIQUIDITY_ORDERS", 10),
		LiquidityPriceTolerance:     getFloat64OrDefault("LIQUIDITY_PRICE_TOLERANCE", 0.01),
		LiquidityStatusPollInterval: getDurationOrDefault("LIQUIDITY_STATUS_POLL_INTERVAL", 5*time.Second),
		LiquidityLoopInterval:       getDurationOrDefault("LIQUIDITY_LOOP_INTERVAL", 12*time.Second),
		LiquidityRequoteIncrement:   getFloat64OrDefault("LIQUIDITY_REQUOTE_INCREMENT", 0.005),
		LiquidityWaitTimeout:        getDurationOrDefault("LIQUIDITY_WAIT_TIMEOUT", 30*time.Second),
		LiquidityTradePollInterval:  getDurationOrDefault("LIQUIDITY_TRADE_POLL_INTERVAL", 3*time.Second),
		LiquidityTradeLimit:         getIntOrDefault("LIQUIDITY_TRADE_LIMIT", 50),
		LiquidityDebug:              getBoolOrDefault("LIQUIDITY_DEBUG", false),
		MarkedForRemovalTimeout:     getDurationOrDefault("MARKED_FOR_REMOVAL_TIMEOUT", 5*time.Minute),
		HedgeStepDelay:              getDurationOrDefault("HEDGE_STEP_DELAY", 200*time.Millisecond),

		// Loop driver defaults
		ProLoopInterval:          getDurationOrDefault("PRO_LOOP_INTERVAL", 90*time.Second),
		PendingExecTimeout:       getDurationOrDefault("PENDING_EXEC_TIMEOUT", 30*time.Second),
		PendingPollInterval:      getDurationOrDefault("PENDING_POLL_INTERVAL", 1*time.Second),
		AccountMonitorInterval:   getDurationOrDefault("ACCOUNT_MONITOR_INTERVAL", 5*time.Minute),
		OrderStatusFallbackAfter: getDurationOrDefault("ORDER_STATUS_FALLBACK_AFTER", 10*time.Second),

		MatchesFile: getEnvOrDefault("MATCHES_FILE", "matches.json"),

		OpinionHost:       getEnvOrDefault("OP_HOST", "https://proxy.opinion.trade:8443"),
		OpinionAPIKey:     os.Getenv("OP_API_KEY"),
		OpinionPrivateKey: os.Getenv("OP_PRIVATE_KEY"),
		OpinionChainID:    int64(getIntOrDefault("OP_CHAIN_ID", 56)),

		PolymarketCLOBURL: getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() (err error) {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}

	if c.PolymarketWSURL == "" {
		return errors.New("POLYMARKET_WS_URL cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return errors.New("POLYMARKET_GAMMA_API_URL cannot be empty")
	}

	if c.ArbThreshold <= 0 || c.ArbThreshold >= 1.0 {
		return fmt.Errorf("ARB_THRESHOLD must be between 0 and 1.0, got %f", c.ArbThreshold)
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" && c.ExecutionMode != "dry-run" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper', 'live', or 'dry-run', got %q", c.ExecutionMode)
	}

	// Validate trade size configuration
	if c.ArbMinTradeSize <= 0 {
		return fmt.Errorf("ARB_MIN_TRADE_SIZE must be positive, got %f", c.ArbMinTradeSize)
	}

	if c.ArbMaxTradeSize <= 0 {
		return fmt.Errorf("ARB_MAX_TRADE_SIZE must be positive, got %f", c.ArbMaxTradeSize)
	}

	if c.ArbMaxTradeSize < c.ArbMinTradeSize {
		return fmt.Errorf("ARB_MAX_TRADE_SIZE (%f) must be >= ARB_MIN_TRADE_SIZE (%f)",
			c.ArbMaxTradeSize, c.ArbMinTradeSize)
	}

	// Validate market filtering configuration
	if c.MaxMarketDuration < 0 {
		return fmt.Errorf("ARB_MAX_MARKET_DURATION must be non-negative (0 = unlimited), got %s", c.MaxMarketDuration)
	}

	if c.DiscoveryMarketLimit < 0 {
		return fmt.Errorf("DISCOVERY_MARKET_LIMIT must be non-negative (0 = unlimited), got %d", c.DiscoveryMarketLimit)
	}

	// Validate WebSocket pool configuration
	if c.WSPoolSize < 1 {
		return fmt.Errorf("WS_POOL_SIZE must be at least 1, got %d", c.WSPoolSize)
	}

	if c.WSPoolSize > 20 {
		return fmt.Errorf("WS_POOL_SIZE must not exceed 20, got %d", c.WSPoolSize)
	}

	// Validate cleanup configuration
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_CHECK_INTERVAL must be positive, got %s", c.CleanupInterval)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	// Book fetcher / rate limiting
	if c.OrderbookBatchSize < 1 {
		return fmt.Errorf("ORDERBOOK_BATCH_SIZE must be at least 1, got %d", c.OrderbookBatchSize)
	}
	if c.PolymarketBooksChunk < 1 {
		return fmt.Errorf("POLYMARKET_BOOKS_CHUNK must be at least 1, got %d", c.PolymarketBooksChunk)
	}
	if c.OpinionOrderbookWorkers < 1 {
		return fmt.Errorf("OPINION_ORDERBOOK_WORKERS must be at least 1, got %d", c.OpinionOrderbookWorkers)
	}
	if c.OpinionMaxRPS <= 0 {
		return fmt.Errorf("OPINION_MAX_RPS must be positive, got %f", c.OpinionMaxRPS)
	}
	if c.MaxOrderbookSkew <= 0 {
		return fmt.Errorf("MAX_ORDERBOOK_SKEW must be positive, got %s", c.MaxOrderbookSkew)
	}

	// Order placement / retry
	if c.OrderMaxRetries < 0 {
		return fmt.Errorf("ORDER_MAX_RETRIES must be non-negative, got %d", c.OrderMaxRetries)
	}
	if c.OrderRetryDelay <= 0 {
		return fmt.Errorf("ORDER_RETRY_DELAY must be positive, got %s", c.OrderRetryDelay)
	}
	if c.OpinionMinFee < 0 {
		return fmt.Errorf("OPINION_MIN_FEE must be non-negative, got %f", c.OpinionMinFee)
	}

	// Profitability thresholds
	if c.SecondsPerYear <= 0 {
		return fmt.Errorf("SECONDS_PER_YEAR must be positive, got %f", c.SecondsPerYear)
	}
	if c.TakerThresholdCost <= 0 || c.TakerThresholdCost > 1.0 {
		return fmt.Errorf("TAKER_THRESHOLD_COST must be between 0 and 1.0, got %f", c.TakerThresholdCost)
	}
	if c.TakerThresholdSize < 0 {
		return fmt.Errorf("TAKER_THRESHOLD_SIZE must be non-negative, got %f", c.TakerThresholdSize)
	}

	// Taker executor
	if c.ImmediateExecEnabled {
		if c.ImmediateMinPercent > c.ImmediateMaxPercent {
			return fmt.Errorf("IMMEDIATE_MIN_PERCENT (%f) must be <= IMMEDIATE_MAX_PERCENT (%f)",
				c.ImmediateMinPercent, c.ImmediateMaxPercent)
		}
		if c.ImmediateOrderSize <= 0 {
			return fmt.Errorf("IMMEDIATE_ORDER_SIZE must be positive, got %f", c.ImmediateOrderSize)
		}
	}
	if c.ExecutionCooldown <= 0 {
		return fmt.Errorf("EXECUTION_COOLDOWN must be positive, got %s", c.ExecutionCooldown)
	}

	// Maker / liquidity provider
	if c.LiquidityTargetSize <= 0 {
		return fmt.Errorf("LIQUIDITY_TARGET_SIZE must be positive, got %f", c.LiquidityTargetSize)
	}
	if c.MaxLiquidityOrders < 0 {
		return fmt.Errorf("MAX_LIQUIDITY_ORDERS must be non-negative, got %d", c.MaxLiquidityOrders)
	}
	if c.LiquidityPriceTolerance < 0 {
		return fmt.Errorf("LIQUIDITY_PRICE_TOLERANCE must be non-negative, got %f", c.LiquidityPriceTolerance)
	}
	if c.LiquidityLoopInterval <= 0 {
		return fmt.Errorf("LIQUIDITY_LOOP_INTERVAL must be positive, got %s", c.LiquidityLoopInterval)
	}
	if c.LiquidityStatusPollInterval <= 0 {
		return fmt.Errorf("LIQUIDITY_STATUS_POLL_INTERVAL must be positive, got %s", c.LiquidityStatusPollInterval)
	}
	if c.LiquidityWaitTimeout <= 0 {
		return fmt.Errorf("LIQUIDITY_WAIT_TIMEOUT must be positive, got %s", c.LiquidityWaitTimeout)
	}
	if c.LiquidityTradePollInterval <= 0 {
		return fmt.Errorf("LIQUIDITY_TRADE_POLL_INTERVAL must be positive, got %s", c.LiquidityTradePollInterval)
	}
	if c.LiquidityTradeLimit < 1 {
		return fmt.Errorf("LIQUIDITY_TRADE_LIMIT must be at least 1, got %d", c.LiquidityTradeLimit)
	}
	if c.MarkedForRemovalTimeout <= 0 {
		return fmt.Errorf("MARKED_FOR_REMOVAL_TIMEOUT must be positive, got %s", c.MarkedForRemovalTimeout)
	}
	if c.HedgeStepDelay <= 0 {
		return fmt.Errorf("HEDGE_STEP_DELAY must be positive, got %s", c.HedgeStepDelay)
	}

	// Loop driver
	if c.ProLoopInterval <= 0 {
		return fmt.Errorf("PRO_LOOP_INTERVAL must be positive, got %s", c.ProLoopInterval)
	}
	if c.PendingExecTimeout <= 0 {
		return fmt.Errorf("PENDING_EXEC_TIMEOUT must be positive, got %s", c.PendingExecTimeout)
	}
	if c.PendingPollInterval <= 0 {
		return fmt.Errorf("PENDING_POLL_INTERVAL must be positive, got %s", c.PendingPollInterval)
	}
	if c.AccountMonitorInterval <= 0 {
		return fmt.Errorf("ACCOUNT_MONITOR_INTERVAL must be positive, got %s", c.AccountMonitorInterval)
	}

	// Matches file / venue connections
	if c.MatchesFile == "" {
		return errors.New("MATCHES_FILE cannot be empty")
	}
	if c.OpinionHost == "" {
		return errors.New("OP_HOST cannot be empty")
	}
	if c.OpinionChainID <= 0 {
		return fmt.Errorf("OP_CHAIN_ID must be positive, got %d", c.OpinionChainID)
	}
	if c.PolymarketCLOBURL == "" {
		return errors.New("POLYMARKET_CLOB_URL cannot be empty")
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
