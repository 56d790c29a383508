package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL, one table per record
// kind (opportunities, fills, hedges, stats snapshots).
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// StoreOpportunity stores a detected opportunity in PostgreSQL.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *types.Opportunity) error {
	var annualized sql.NullFloat64
	if opp.AnnualizedRate != nil {
		annualized = sql.NullFloat64{Float64: *opp.AnnualizedRate, Valid: true}
	}

	query := `
		INSERT INTO opportunities (
			match_slug, question, strategy, maker,
			first_venue, first_token, first_side, first_price, first_size,
			second_venue, second_token, second_side, second_price, second_size,
			cost, profit_rate, annualized_rate, min_size, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		opp.Match.VenueBSlug,
		opp.Match.Question,
		string(opp.Strategy),
		opp.Maker,
		string(opp.FirstLeg.Venue), opp.FirstLeg.Token, string(opp.FirstLeg.Side), opp.FirstLeg.Price, opp.FirstLeg.Size,
		string(opp.SecondLeg.Venue), opp.SecondLeg.Token, string(opp.SecondLeg.Side), opp.SecondLeg.Price, opp.SecondLeg.Size,
		opp.Cost, opp.ProfitRate, annualized, opp.MinSize, opp.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored", zap.String("match-slug", opp.Match.VenueBSlug), zap.String("strategy", string(opp.Strategy)))
	return nil
}

// StoreFill stores an observed fill in PostgreSQL.
func (p *PostgresStorage) StoreFill(ctx context.Context, fill *FillRecord) error {
	query := `
		INSERT INTO fills (
			order_id, venue, match_slug, token_id, side, price, size, maker, filled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		fill.OrderID, string(fill.Venue), fill.MatchSlug, fill.TokenID, string(fill.Side),
		fill.Price, fill.Size, fill.Maker, fill.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert fill: %w", err)
	}

	p.logger.Debug("fill-stored", zap.String("order-id", fill.OrderID))
	return nil
}

// StoreHedge stores a placed hedge leg in PostgreSQL.
func (p *PostgresStorage) StoreHedge(ctx context.Context, hedge *HedgeRecord) error {
	query := `
		INSERT INTO hedges (
			order_key, match_slug, token_id, side, price, size, hedged_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		hedge.OrderKey, hedge.MatchSlug, hedge.TokenID, string(hedge.Side), hedge.Price, hedge.Size, hedge.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert hedge: %w", err)
	}

	p.logger.Debug("hedge-stored", zap.String("order-key", hedge.OrderKey))
	return nil
}

// StoreStats stores a periodic engine stats snapshot in PostgreSQL.
func (p *PostgresStorage) StoreStats(ctx context.Context, stats *types.EngineStats) error {
	query := `
		INSERT INTO engine_stats (
			fills_count, fills_volume, hedge_count, hedge_volume, hedge_failures,
			untracked_trades, opportunities_detected, opportunities_executed,
			deduped_executions, uptime_seconds, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		stats.FillsCount, stats.FillsVolume, stats.HedgeCount, stats.HedgeVolume, stats.HedgeFailures,
		stats.UntrackedTrades, stats.OpportunitiesDetected, stats.OpportunitiesExecuted,
		stats.DedupedExecutions, stats.UptimeSeconds(), stats.LastStatsAt,
	)
	if err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}

	p.logger.Debug("stats-stored", zap.Int64("fills-count", stats.FillsCount))
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
