// Package matchloader implements the match loader (C13): it reads the
// static [MarketMatch] set the rest of the engine scans against from a JSON
// file on disk, with an optional reload poll so a long-running process can
// pick up newly matched markets without a restart.
package matchloader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Loader holds the current match set behind an atomic pointer so readers
// never block on a reload in progress, and a reload never disturbs an
// in-flight scan cycle.
type Loader struct {
	path     string
	interval time.Duration
	logger   *zap.Logger
	matches  atomic.Pointer[[]*types.MarketMatch]
}

// New builds a Loader and performs the initial load.
func New(path string, reloadInterval time.Duration, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{path: path, interval: reloadInterval, logger: logger}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Matches returns the currently loaded match set.
func (l *Loader) Matches() []*types.MarketMatch {
	p := l.matches.Load()
	if p == nil {
		return nil
	}
	return *p
}

// reload reads and validates the matches file, then swaps the pointer
// atomically. A malformed file or a record missing the minimum identifier
// set is a fatal load error.
func (l *Loader) reload() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read matches file: %w", err)
	}

	var matches []*types.MarketMatch
	if err := json.Unmarshal(raw, &matches); err != nil {
		return fmt.Errorf("parse matches file: %w", err)
	}

	for i, m := range matches {
		if err := validate(m); err != nil {
			return fmt.Errorf("match %d: %w", i, err)
		}
	}

	l.matches.Store(&matches)
	l.logger.Info("matches-loaded", zap.String("path", l.path), zap.Int("count", len(matches)))
	return nil
}

func validate(m *types.MarketMatch) error {
	if m == nil {
		return fmt.Errorf("nil match record")
	}
	if m.YesTokenA == "" || m.NoTokenA == "" {
		return fmt.Errorf("missing venue-A token ids for %q", m.Question)
	}
	if m.YesTokenB == "" || m.NoTokenB == "" {
		return fmt.Errorf("missing venue-B token ids for %q", m.Question)
	}
	if m.VenueBSlug == "" {
		return fmt.Errorf("missing venue-B slug for %q", m.Question)
	}
	return nil
}

// Run polls for reloads on the configured interval until ctx is cancelled.
// If interval is zero, Run returns immediately without polling.
func (l *Loader) Run(ctx context.Context) {
	if l.interval <= 0 {
		return
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.reload(); err != nil {
				l.logger.Error("matches-reload-failed", zap.Error(err))
			}
		}
	}
}
