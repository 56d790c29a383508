package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-arb/internal/app"
	"github.com/mselser95/polymarket-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cross-venue arbitrage engine",
	Long: `Runs the cross-venue arbitrage engine against the matches loaded from
--matches-file, in one of four modes:

  pro             taker loop: scan for immediate-execution opportunities and
                  fire both legs, repeating every PRO_LOOP_INTERVAL
  pro-once        a single taker scan-and-execute cycle, then exit
  liquidity       maker loop: reconcile resting orders against the current
                  opportunity set, plus the background order tracker/hedger
  liquidity-once  a single maker reconciliation cycle, then exit`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("mode", "pro", "run mode: pro, pro-once, liquidity, liquidity-once")
	runCmd.Flags().String("matches-file", "", "override MATCHES_FILE for this run")
}

func runEngine(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if matchesFile, _ := cmd.Flags().GetString("matches-file"); matchesFile != "" {
		cfg.MatchesFile = matchesFile
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	modeFlag, _ := cmd.Flags().GetString("mode")
	mode := app.Mode(modeFlag)
	switch mode {
	case app.ModePro, app.ModeProOnce, app.ModeLiquidity, app.ModeLiquidityOnce:
	default:
		return fmt.Errorf("invalid --mode %q: must be one of pro, pro-once, liquidity, liquidity-once", modeFlag)
	}

	application, err := app.New(cfg, logger, &app.Options{Mode: mode})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
