package venue

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// polymarketChainID is the Polygon mainnet chain id the CTF Exchange
// contracts are deployed on.
var polymarketChainID = big.NewInt(137)

// PolymarketConfig configures a venue-B (Polymarket-style CLOB) adapter.
type PolymarketConfig struct {
	BaseURL       string
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	ProxyAddress  string
	SignatureType int
	BooksChunk    int // max token ids per bulk /books request, per spec polymarket_books_chunk
	HTTPTimeout   time.Duration
	Logger        *zap.Logger
}

// PolymarketAdapter is the C1 venue-B adapter: an EIP-712 signed CLOB client
// exposing the narrow Adapter surface. It is grounded on the teacher's order
// signing/HMAC-auth flow (originally internal/execution/order_client.go and
// cmd/place_orders.go), adapted into the venue.Adapter capability shape.
type PolymarketAdapter struct {
	http          *http.Client
	baseURL       string
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string
	proxyAddress  string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	booksChunk    int
	logger        *zap.Logger
}

// NewPolymarketAdapter builds a venue-B adapter from a signing key and API
// credentials. An empty PrivateKey yields a read-only adapter (book fetches
// still work; placing orders returns an error).
func NewPolymarketAdapter(cfg PolymarketConfig) (*PolymarketAdapter, error) {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	chunk := cfg.BooksChunk
	if chunk <= 0 {
		chunk = 50
	}

	a := &PolymarketAdapter{
		http:          &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  builder.NewExchangeOrderBuilderImpl(polymarketChainID, nil),
		booksChunk:    chunk,
		logger:        cfg.Logger,
	}

	if cfg.PrivateKey != "" {
		pk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		a.privateKey = pk
		publicKeyECDSA, ok := pk.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("derive public key: unexpected key type")
		}
		a.address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	return a, nil
}

// Name identifies this adapter for logging and metrics labels.
func (a *PolymarketAdapter) Name() string { return "polymarket" }

// makerAddress returns the proxy address if configured, else the EOA.
func (a *PolymarketAdapter) makerAddress() string {
	if a.proxyAddress != "" {
		return a.proxyAddress
	}
	return a.address
}

type bookLevelWire struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookWire struct {
	AssetID string          `json:"asset_id"`
	Bids    []bookLevelWire `json:"bids"`
	Asks    []bookLevelWire `json:"asks"`
}

// FetchBook retrieves a single token's order book from GET /book.
func (a *PolymarketAdapter) FetchBook(ctx context.Context, token string) (*types.OrderBookSnapshot, error) {
	url := fmt.Sprintf("%s/book?token_id=%s", a.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build book request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch book: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read book response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("book fetch failed (status %d): %s", resp.StatusCode, string(body))
	}

	var wire bookWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parse book response: %w", err)
	}

	return snapshotFromWire(token, wire), nil
}

// FetchBooksBulk retrieves many tokens' books via POST /books, chunked to
// booksChunk tokens per request (spec property: no request exceeds
// polymarket_books_chunk tokens).
func (a *PolymarketAdapter) FetchBooksBulk(ctx context.Context, tokens []string) (map[string]*types.OrderBookSnapshot, error) {
	out := make(map[string]*types.OrderBookSnapshot, len(tokens))

	for start := 0; start < len(tokens); start += a.booksChunk {
		end := start + a.booksChunk
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		books, err := a.fetchBooksChunk(ctx, chunk)
		if err != nil {
			if a.logger != nil {
				a.logger.Warn("polymarket-bulk-chunk-failed", zap.Error(err), zap.Int("chunk-size", len(chunk)))
			}
			continue
		}
		for tokenID, snap := range books {
			out[tokenID] = snap
		}
	}

	return out, nil
}

func (a *PolymarketAdapter) fetchBooksChunk(ctx context.Context, tokens []string) (map[string]*types.OrderBookSnapshot, error) {
	type bulkReqItem struct {
		TokenID string `json:"token_id"`
	}
	items := make([]bulkReqItem, len(tokens))
	for i, t := range tokens {
		items[i] = bulkReqItem{TokenID: t}
	}

	body, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal bulk books request: %w", err)
	}

	url := a.baseURL + "/books"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build bulk books request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bulk books: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bulk books response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bulk books fetch failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var wires []bookWire
	if err := json.Unmarshal(respBody, &wires); err != nil {
		return nil, fmt.Errorf("parse bulk books response: %w", err)
	}

	out := make(map[string]*types.OrderBookSnapshot, len(wires))
	for _, w := range wires {
		if w.AssetID == "" {
			continue
		}
		out[w.AssetID] = snapshotFromWire(w.AssetID, w)
	}
	return out, nil
}

func snapshotFromWire(token string, w bookWire) *types.OrderBookSnapshot {
	bids := make([]types.OrderBookLevel, 0, len(w.Bids))
	for _, lvl := range w.Bids {
		p, sz, ok := parseLevel(lvl)
		if ok {
			bids = append(bids, types.OrderBookLevel{Price: p, Size: sz})
		}
	}
	asks := make([]types.OrderBookLevel, 0, len(w.Asks))
	for _, lvl := range w.Asks {
		p, sz, ok := parseLevel(lvl)
		if ok {
			asks = append(asks, types.OrderBookLevel{Price: p, Size: sz})
		}
	}

	return &types.OrderBookSnapshot{
		TokenID:   token,
		Source:    types.VenueB,
		Bids:      types.NormalizeLevels(bids, true),
		Asks:      types.NormalizeLevels(asks, false),
		Timestamp: time.Now(),
	}
}

func parseLevel(lvl bookLevelWire) (price, size float64, ok bool) {
	p, err := strconv.ParseFloat(lvl.Price, 64)
	if err != nil {
		return 0, 0, false
	}
	s, err := strconv.ParseFloat(lvl.Size, 64)
	if err != nil {
		return 0, 0, false
	}
	return p, s, true
}

// PlaceOrder builds, signs and submits an EIP-712 order to POST /order.
func (a *PolymarketAdapter) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	if a.privateKey == nil {
		return "", fmt.Errorf("polymarket adapter has no signing key configured")
	}

	side := model.BUY
	if req.Side == types.SideSell {
		side = model.SELL
	}

	sizePrecision, amountPrecision := roundingPrecisionForTick(req.TickSize)
	takerTokens := roundAmount(req.Size, sizePrecision)
	makerUSD := roundAmount(takerTokens*req.Price, amountPrecision)

	orderData := &model.OrderData{
		Maker:         a.makerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       req.Token,
		MakerAmount:   usdToRawAmount(makerUSD),
		TakerAmount:   usdToRawAmount(takerTokens),
		Side:          side,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        a.address,
		Expiration:    "0",
		SignatureType: a.signatureType,
	}
	if req.NegRisk {
		orderData.FeeRateBps = "0"
	}

	signed, err := a.orderBuilder.BuildSignedOrder(a.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return "", fmt.Errorf("build signed order: %w", err)
	}

	sideStr := "BUY"
	if signed.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	jsonOrder := types.SignedOrderJSON{
		Salt:          signed.Salt.Int64(),
		Maker:         signed.Maker.Hex(),
		Signer:        signed.Signer.Hex(),
		Taker:         signed.Taker.Hex(),
		TokenID:       signed.TokenId.String(),
		MakerAmount:   signed.MakerAmount.String(),
		TakerAmount:   signed.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    signed.Expiration.String(),
		Nonce:         signed.Nonce.String(),
		FeeRateBps:    signed.FeeRateBps.String(),
		SignatureType: int(signed.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(signed.Signature),
	}

	orderType := "GTC"
	if req.TIF == TIFFOK {
		orderType = "FOK"
	}

	reqBody, err := json.Marshal(types.OrderSubmissionRequest{
		Order:     jsonOrder,
		Owner:     a.apiKey,
		OrderType: orderType,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	respBody, status, err := a.signedRequest(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("place order failed (status %d): %s", status, string(respBody))
	}

	var subResp types.OrderSubmissionResponse
	if err := json.Unmarshal(respBody, &subResp); err != nil {
		return "", fmt.Errorf("parse order response: %w", err)
	}
	if !subResp.Success {
		return "", &types.OrderError{Code: subResp.ErrorMsg, Message: subResp.ErrorMsg, OrderID: subResp.OrderID, Side: sideStr}
	}

	return subResp.OrderID, nil
}

// Cancel requests cancellation of a resting order via DELETE /order.
func (a *PolymarketAdapter) Cancel(ctx context.Context, orderID string) error {
	reqBody, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}

	respBody, status, err := a.signedRequest(ctx, http.MethodDelete, "/order", reqBody)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("cancel failed (status %d): %s", status, string(respBody))
	}
	return nil
}

// GetOrder queries the venue's order status endpoint and normalizes it.
func (a *PolymarketAdapter) GetOrder(ctx context.Context, orderID string) (OrderStatusResult, error) {
	path := "/data/order/" + orderID
	respBody, status, err := a.signedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return OrderStatusResult{}, err
	}
	if status != http.StatusOK {
		return OrderStatusResult{}, fmt.Errorf("get order failed (status %d): %s", status, string(respBody))
	}

	var q types.OrderQueryResponse
	if err := json.Unmarshal(respBody, &q); err != nil {
		return OrderStatusResult{}, fmt.Errorf("parse order status: %w", err)
	}

	return OrderStatusResult{
		Status: normalizePolymarketStatus(q.Status, q.Size, q.SizeFilled),
		Filled: q.SizeFilled,
		Total:  q.Size,
	}, nil
}

// GetRecentTrades is a no-op for venue B: fill attribution there relies on
// status polling alone, per spec §4.1/§4.9.
func (a *PolymarketAdapter) GetRecentTrades(ctx context.Context, limit int) ([]types.Trade, error) {
	return nil, nil
}

// signedRequest issues an HMAC (L2) authenticated request against the CLOB
// API, mirroring the Python client's timestamp+method+path+body signature
// scheme.
func (a *PolymarketAdapter) signedRequest(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signaturePayload := timestamp + method + path + string(body)

	secretBytes, err := base64.URLEncoding.DecodeString(a.secret)
	if err != nil {
		return nil, 0, fmt.Errorf("decode secret: %w", err)
	}
	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", a.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", a.passphrase)
	req.Header.Set("POLY_ADDRESS", a.address)

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

// normalizePolymarketStatus maps the CLOB's status vocabulary
// (live/matched/delayed/unmatched/cancel*) into the closed OrderStatus set.
func normalizePolymarketStatus(status string, total, filled float64) types.OrderStatus {
	switch strings.ToLower(status) {
	case "live", "delayed":
		if filled > 0 && filled < total {
			return types.StatusPartial
		}
		return types.StatusPending
	case "matched":
		if filled >= total && total > 0 {
			return types.StatusFilled
		}
		return types.StatusPartial
	case "cancelled", "canceled":
		return types.StatusCancelled
	case "cancel_in_progress", "cancelling", "canceling":
		return types.StatusCancelInProgress
	case "unmatched":
		return types.StatusCancelled
	default:
		return types.StatusUnknown
	}
}

func roundingPrecisionForTick(tickSize float64) (sizePrecision, amountPrecision int) {
	switch tickSize {
	case 0.1:
		return 2, 3
	case 0.01:
		return 2, 4
	case 0.001:
		return 2, 5
	case 0.0001:
		return 2, 6
	default:
		return 2, 4
	}
}

func roundAmount(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}

func usdToRawAmount(usd float64) string {
	raw := int64(math.Round(usd * 1_000_000))
	return strconv.FormatInt(raw, 10)
}
