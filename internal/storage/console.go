package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing to console. Useful
// for local runs without a database configured.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreOpportunity pretty-prints a detected opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(_ context.Context, opp *types.Opportunity) error {
	fmt.Println("\n" + rule)
	fmt.Printf("ARBITRAGE OPPORTUNITY DETECTED (%s)\n", opp.Strategy)
	fmt.Println(rule)
	fmt.Printf("Market:   %s\n", opp.Match.VenueBSlug)
	fmt.Printf("Question: %s\n", opp.Match.Question)
	fmt.Printf("Time:     %s\n", opp.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Println(rule)
	fmt.Printf("  %-6s %s @ %.4f size %.2f\n", opp.FirstLeg.Venue, opp.FirstLeg.Side, opp.FirstLeg.Price, opp.FirstLeg.Size)
	fmt.Printf("  %-6s %s @ %.4f size %.2f\n", opp.SecondLeg.Venue, opp.SecondLeg.Side, opp.SecondLeg.Price, opp.SecondLeg.Size)
	fmt.Printf("  ───────────────────────────────\n")
	fmt.Printf("  Cost:        %.4f\n", opp.Cost)
	fmt.Printf("  Profit rate: %.4f%%\n", opp.ProfitRate*100)
	if opp.AnnualizedRate != nil {
		fmt.Printf("  Annualized:  %.2f%%\n", *opp.AnnualizedRate*100)
	}
	fmt.Printf("  Min size:    %.2f\n", opp.MinSize)
	if opp.Maker {
		fmt.Printf("  Mode:        maker (resting order)\n")
	} else {
		fmt.Printf("  Mode:        taker (immediate execution)\n")
	}
	fmt.Println(rule)

	return nil
}

// StoreFill pretty-prints an observed fill to console.
func (c *ConsoleStorage) StoreFill(_ context.Context, fill *FillRecord) error {
	fmt.Printf("FILL  [%s] order=%s venue=%s token=%s side=%s price=%.4f size=%.2f maker=%v\n",
		fill.Timestamp.Format("15:04:05"), fill.OrderID, fill.Venue, fill.TokenID, fill.Side, fill.Price, fill.Size, fill.Maker)
	return nil
}

// StoreHedge pretty-prints a placed hedge leg to console.
func (c *ConsoleStorage) StoreHedge(_ context.Context, hedge *HedgeRecord) error {
	fmt.Printf("HEDGE [%s] key=%s token=%s side=%s price=%.4f size=%.2f\n",
		hedge.Timestamp.Format("15:04:05"), hedge.OrderKey, hedge.TokenID, hedge.Side, hedge.Price, hedge.Size)
	return nil
}

// StoreStats pretty-prints a periodic stats snapshot to console.
func (c *ConsoleStorage) StoreStats(_ context.Context, stats *types.EngineStats) error {
	fmt.Println(rule)
	fmt.Printf("ENGINE STATS  uptime=%.0fs\n", stats.UptimeSeconds())
	fmt.Printf("  fills:         %d (%.2f volume)\n", stats.FillsCount, stats.FillsVolume)
	fmt.Printf("  hedges:        %d (%.2f volume, %d failures)\n", stats.HedgeCount, stats.HedgeVolume, stats.HedgeFailures)
	fmt.Printf("  untracked:     %d\n", stats.UntrackedTrades)
	fmt.Printf("  opportunities: %d detected, %d executed, %d deduped\n",
		stats.OpportunitiesDetected, stats.OpportunitiesExecuted, stats.DedupedExecutions)
	fmt.Println(rule)
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
