// Package bookfetcher implements the per-cycle, per-match book acquisition
// component (C4): a bulk venue-B pull alongside a bounded venue-A worker
// pool, skew-gated and merged into per-match YES/NO snapshot bundles.
package bookfetcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// MatchBooks bundles the four snapshots (YES/NO on each venue) a single
// match needs for detection, or nil where a token's book could not be
// acquired or failed the skew gate.
type MatchBooks struct {
	Match *types.MarketMatch

	YesA *types.OrderBookSnapshot
	NoA  *types.OrderBookSnapshot
	YesB *types.OrderBookSnapshot
	NoB  *types.OrderBookSnapshot
}

// Ready reports whether both venues' YES books are present for this match.
func (m *MatchBooks) Ready() bool {
	return m != nil && m.YesA != nil && m.YesB != nil
}

// Fetcher runs one fetch cycle across a batch of matches.
type Fetcher struct {
	venueA  venue.Adapter
	venueB  venue.Adapter
	workers int
	maxSkew time.Duration
	logger  *zap.Logger
}

// NewFetcher builds a Fetcher. workers bounds the venue-A worker pool size
// (venue A has no bulk endpoint); maxSkew is the per-match
// |ts_A - ts_B| gate.
func NewFetcher(venueA, venueB venue.Adapter, workers int, maxSkew time.Duration, logger *zap.Logger) *Fetcher {
	if workers <= 0 {
		workers = 1
	}
	return &Fetcher{
		venueA:  venueA,
		venueB:  venueB,
		workers: workers,
		maxSkew: maxSkew,
		logger:  logger,
	}
}

// FetchCycle collects every YES token referenced by matches, fetches both
// venues' books in parallel, derives the complementary NO books, and
// returns one MatchBooks per input match (skew-gated and missing-token
// matches carry nil snapshots rather than being dropped from the slice, so
// callers can log what was skipped and why).
func (f *Fetcher) FetchCycle(ctx context.Context, matches []*types.MarketMatch) []*MatchBooks {
	start := time.Now()
	defer func() {
		CycleDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	tokensA := make([]string, 0, len(matches))
	tokensB := make([]string, 0, len(matches))
	for _, m := range matches {
		tokensA = append(tokensA, m.YesTokenA)
		tokensB = append(tokensB, m.YesTokenB)
	}

	var booksA, booksB map[string]*types.OrderBookSnapshot
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		booksA = f.fetchVenueA(ctx, tokensA)
	}()

	go func() {
		defer wg.Done()
		b, err := f.venueB.FetchBooksBulk(ctx, tokensB)
		if err != nil {
			VenueFetchErrorsTotal.WithLabelValues(string(types.VenueB)).Inc()
			if f.logger != nil {
				f.logger.Warn("venue-b-bulk-fetch-failed", zap.Error(err))
			}
			b = map[string]*types.OrderBookSnapshot{}
		}
		booksB = b
	}()

	wg.Wait()

	out := make([]*MatchBooks, 0, len(matches))
	for _, m := range matches {
		mb := &MatchBooks{Match: m}

		yesA, okA := booksA[m.YesTokenA]
		yesB, okB := booksB[m.YesTokenB]
		if !okA {
			TokensMissingTotal.WithLabelValues(string(types.VenueA)).Inc()
		}
		if !okB {
			TokensMissingTotal.WithLabelValues(string(types.VenueB)).Inc()
		}

		if okA && okB {
			if f.maxSkew > 0 {
				skew := yesA.Timestamp.Sub(yesB.Timestamp)
				if skew < 0 {
					skew = -skew
				}
				if skew > f.maxSkew {
					MatchesSkewDroppedTotal.Inc()
					out = append(out, mb)
					continue
				}
			}

			mb.YesA = yesA
			mb.YesB = yesB
			mb.NoA = types.DeriveNoSnapshot(yesA, m.NoTokenA)
			mb.NoB = types.DeriveNoSnapshot(yesB, m.NoTokenB)
		}

		out = append(out, mb)
	}

	return out
}

// fetchVenueA fans out per-token fetches across a bounded worker pool,
// since venue A exposes no bulk endpoint.
func (f *Fetcher) fetchVenueA(ctx context.Context, tokens []string) map[string]*types.OrderBookSnapshot {
	results := make(map[string]*types.OrderBookSnapshot, len(tokens))
	var mu sync.Mutex

	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for token := range jobs {
				snap, err := f.venueA.FetchBook(ctx, token)
				if err != nil {
					VenueFetchErrorsTotal.WithLabelValues(string(types.VenueA)).Inc()
					if f.logger != nil {
						f.logger.Warn("venue-a-fetch-failed", zap.String("token", token), zap.Error(err))
					}
					continue
				}
				mu.Lock()
				results[token] = snap
				mu.Unlock()
			}
		}()
	}

	seen := make(map[string]bool, len(tokens))
	go func() {
		defer close(jobs)
		for _, t := range tokens {
			if seen[t] {
				continue
			}
			seen[t] = true
			select {
			case jobs <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return results
}
