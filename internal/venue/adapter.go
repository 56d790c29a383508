// Package venue defines the narrow capability surface the rest of the
// engine depends on to talk to either arbitrage venue, and the two
// concrete adapters (Opinion for venue A, Polymarket-style for venue B)
// that implement it.
package venue

import (
	"context"
	"errors"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// ErrBulkUnsupported is returned by FetchBooksBulk on adapters (venue A)
// that have no bulk book endpoint; callers fall back to per-token fetches.
var ErrBulkUnsupported = errors.New("bulk book fetch not supported by this venue")

// TimeInForce mirrors the small set of order lifetimes the core issues.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC"
	TIFFOK TimeInForce = "FOK"
)

// PlaceOrderRequest is the venue-agnostic shape the core builds before
// handing off to an adapter. Venue-specific fields (TickSize, NegRisk) are
// ignored by adapters that don't need them.
type PlaceOrderRequest struct {
	Market   string
	Token    string
	Side     types.Side
	Price    float64
	Size     float64
	TIF      TimeInForce
	TickSize float64
	NegRisk  bool
}

// OrderStatusResult is the normalized response to a status query.
type OrderStatusResult struct {
	Status types.OrderStatus
	Filled float64
	Total  float64
}

// Adapter is the capability surface each venue exposes to the core. Errors
// returned by any method should, where the underlying transport supports
// it, be wrapped so that types.ClassifyError can recognize balance and
// network failures.
type Adapter interface {
	// FetchBook retrieves a single token's order book.
	FetchBook(ctx context.Context, token string) (*types.OrderBookSnapshot, error)

	// FetchBooksBulk retrieves many tokens' books in one or more batched
	// requests. Adapters without bulk support return ErrBulkUnsupported.
	FetchBooksBulk(ctx context.Context, tokens []string) (map[string]*types.OrderBookSnapshot, error)

	// PlaceOrder submits a new order and returns its venue-assigned id.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (orderID string, err error)

	// Cancel requests cancellation of a resting order.
	Cancel(ctx context.Context, orderID string) error

	// GetOrder queries the current status of a previously placed order.
	GetOrder(ctx context.Context, orderID string) (OrderStatusResult, error)

	// GetRecentTrades returns the most recent fills visible to this
	// account. Only venue A implements this meaningfully; venue B returns
	// an empty slice since its fill attribution uses status polling alone.
	GetRecentTrades(ctx context.Context, limit int) ([]types.Trade, error)

	// Name identifies the venue for logging and metrics labels.
	Name() string
}
