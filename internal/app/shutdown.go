package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// shutdownTimeout bounds the whole graceful-shutdown sequence.
const shutdownTimeout = 10 * time.Second

// Shutdown drains resting maker orders, stops the HTTP server and
// background loops, flushes a final stats snapshot, and releases the
// storage backend. Each step logs rather than aborts on error so a single
// slow or failing component can't wedge the others.
func (a *App) Shutdown() error {
	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.mode == ModeLiquidity || a.mode == ModeLiquidityOnce {
		if !a.provider.Drain(shutdownCtx, a.cfg.LiquidityWaitTimeout) {
			a.logger.Warn("maker-drain-incomplete-at-shutdown")
		}
	}

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-failed", zap.Error(err))
	}

	if a.breaker != nil {
		status := a.breaker.GetStatus()
		a.logger.Info("circuit-breaker-final-status",
			zap.Bool("enabled", status.Enabled),
			zap.Float64("last-balance", status.LastBalance))
	}

	a.publishStats(shutdownCtx)

	if err := a.store.Close(); err != nil {
		a.logger.Error("storage-close-failed", zap.Error(err))
	}

	a.wg.Wait()
	return nil
}
