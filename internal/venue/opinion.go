package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/ratelimit"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// OpinionConfig configures a venue-A adapter. Venue A has no bulk book
// endpoint and is reached through a single host with apikey-header auth, per
// the out-of-scope vendor SDK it fronts.
type OpinionConfig struct {
	Host        string
	APIKey      string
	MaxRPS      float64
	HTTPTimeout time.Duration
	Logger      *zap.Logger
}

// OpinionAdapter is the C1 venue-A adapter: a thin REST client gated by a
// requests-per-second limiter, since the vendor SDK it fronts enforces one
// itself and the engine must not exceed it.
type OpinionAdapter struct {
	http   *http.Client
	host   string
	apiKey string
	gate   *ratelimit.Gate
	logger *zap.Logger
}

// NewOpinionAdapter builds a venue-A adapter.
func NewOpinionAdapter(cfg OpinionConfig) *OpinionAdapter {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpinionAdapter{
		http:   &http.Client{Timeout: timeout},
		host:   trimTrailingSlash(cfg.Host),
		apiKey: cfg.APIKey,
		gate:   ratelimit.NewGate(cfg.MaxRPS),
		logger: cfg.Logger,
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// Name identifies this adapter for logging and metrics labels.
func (a *OpinionAdapter) Name() string { return "opinion" }

type opinionLevelWire struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type opinionBookWire struct {
	TokenID string             `json:"token_id"`
	Bids    []opinionLevelWire `json:"bids"`
	Asks    []opinionLevelWire `json:"asks"`
}

// FetchBook retrieves a single token's order book from GET /book.
func (a *OpinionAdapter) FetchBook(ctx context.Context, token string) (*types.OrderBookSnapshot, error) {
	a.gate.Wait()

	url := fmt.Sprintf("%s/book?token_id=%s", a.host, token)
	body, err := a.doGet(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch opinion book: %w", err)
	}

	var wire opinionBookWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parse opinion book: %w", err)
	}

	bids := make([]types.OrderBookLevel, 0, len(wire.Bids))
	for _, lvl := range wire.Bids {
		bids = append(bids, types.OrderBookLevel{Price: lvl.Price, Size: lvl.Size})
	}
	asks := make([]types.OrderBookLevel, 0, len(wire.Asks))
	for _, lvl := range wire.Asks {
		asks = append(asks, types.OrderBookLevel{Price: lvl.Price, Size: lvl.Size})
	}

	return &types.OrderBookSnapshot{
		TokenID:   token,
		Source:    types.VenueA,
		Bids:      types.NormalizeLevels(bids, true),
		Asks:      types.NormalizeLevels(asks, false),
		Timestamp: time.Now(),
	}, nil
}

// FetchBooksBulk always fails for venue A: there is no bulk book endpoint,
// so the book fetcher falls back to issuing one rate-limited FetchBook call
// per token.
func (a *OpinionAdapter) FetchBooksBulk(ctx context.Context, tokens []string) (map[string]*types.OrderBookSnapshot, error) {
	return nil, ErrBulkUnsupported
}

type opinionOrderRequest struct {
	TokenID string  `json:"token_id"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	OrderType string `json:"order_type"`
}

type opinionOrderResponse struct {
	OrderID string `json:"order_id"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PlaceOrder submits a new resting or taker order via POST /order.
func (a *OpinionAdapter) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	a.gate.Wait()

	orderType := "GTC"
	if req.TIF == TIFFOK {
		orderType = "FOK"
	}

	reqBody, err := json.Marshal(opinionOrderRequest{
		TokenID:   req.Token,
		Side:      string(req.Side),
		Price:     req.Price,
		Size:      req.Size,
		OrderType: orderType,
	})
	if err != nil {
		return "", fmt.Errorf("marshal opinion order: %w", err)
	}

	respBody, status, err := a.doPost(ctx, "/order", reqBody)
	if err != nil {
		return "", fmt.Errorf("place opinion order: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("place opinion order failed (status %d): %s", status, string(respBody))
	}

	var resp opinionOrderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parse opinion order response: %w", err)
	}
	if resp.Error != "" {
		return "", &types.OrderError{Code: resp.Error, Message: resp.Message, OrderID: resp.OrderID, Side: string(req.Side)}
	}

	return resp.OrderID, nil
}

// Cancel requests cancellation of a resting order via POST /cancel.
func (a *OpinionAdapter) Cancel(ctx context.Context, orderID string) error {
	a.gate.Wait()

	reqBody, err := json.Marshal(map[string]string{"order_id": orderID})
	if err != nil {
		return fmt.Errorf("marshal opinion cancel: %w", err)
	}

	respBody, status, err := a.doPost(ctx, "/cancel", reqBody)
	if err != nil {
		return fmt.Errorf("cancel opinion order: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("cancel opinion order failed (status %d): %s", status, string(respBody))
	}
	return nil
}

type opinionOrderStatusWire struct {
	Status     string  `json:"status"`
	Size       float64 `json:"size,string"`
	SizeFilled float64 `json:"size_filled,string"`
}

// GetOrder queries the venue's order status endpoint.
func (a *OpinionAdapter) GetOrder(ctx context.Context, orderID string) (OrderStatusResult, error) {
	a.gate.Wait()

	url := fmt.Sprintf("%s/order/%s", a.host, orderID)
	body, err := a.doGet(ctx, url)
	if err != nil {
		return OrderStatusResult{}, fmt.Errorf("get opinion order: %w", err)
	}

	var wire opinionOrderStatusWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return OrderStatusResult{}, fmt.Errorf("parse opinion order status: %w", err)
	}

	return OrderStatusResult{
		Status: normalizeOpinionStatus(wire.Status, wire.Size, wire.SizeFilled),
		Filled: wire.SizeFilled,
		Total:  wire.Size,
	}, nil
}

type opinionTradeWire struct {
	TradeID   string  `json:"trade_id"`
	OrderID   string  `json:"order_id"`
	TokenID   string  `json:"token_id"`
	Outcome   string  `json:"outcome"`
	Side      string  `json:"side"`
	Price     float64 `json:"price,string"`
	Size      float64 `json:"size,string"`
	Status    string  `json:"status"`
	Timestamp int64   `json:"timestamp"`
}

// GetRecentTrades returns the account's most recent fills from the
// venue-A trade tape, the only venue whose fill attribution the order
// tracker polls this way.
func (a *OpinionAdapter) GetRecentTrades(ctx context.Context, limit int) ([]types.Trade, error) {
	a.gate.Wait()

	url := fmt.Sprintf("%s/trades?limit=%d", a.host, limit)
	body, err := a.doGet(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch opinion trades: %w", err)
	}

	var wires []opinionTradeWire
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, fmt.Errorf("parse opinion trades: %w", err)
	}

	trades := make([]types.Trade, 0, len(wires))
	for _, w := range wires {
		trades = append(trades, types.Trade{
			TradeID:   w.TradeID,
			OrderID:   w.OrderID,
			TokenID:   w.TokenID,
			Outcome:   w.Outcome,
			Side:      w.Side,
			Price:     w.Price,
			Size:      w.Size,
			Status:    normalizeOpinionStatus(w.Status, w.Size, w.Size),
			Timestamp: time.Unix(w.Timestamp, 0),
		})
	}
	return trades, nil
}

func (a *OpinionAdapter) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (a *OpinionAdapter) doPost(ctx context.Context, path string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// normalizeOpinionStatus maps venue A's status vocabulary into the closed
// OrderStatus set.
func normalizeOpinionStatus(status string, total, filled float64) types.OrderStatus {
	switch status {
	case "open", "pending", "live":
		if filled > 0 && filled < total {
			return types.StatusPartial
		}
		return types.StatusPending
	case "filled", "matched":
		return types.StatusFilled
	case "partial", "partially_filled":
		return types.StatusPartial
	case "cancelled", "canceled":
		return types.StatusCancelled
	case "cancelling", "canceling", "cancel_in_progress":
		return types.StatusCancelInProgress
	default:
		return types.StatusUnknown
	}
}
