package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/bookfetcher"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// BooksProvider returns the engine's most recently fetched match books. The
// app wires this to an atomic pointer swapped in at the end of each fetch
// cycle, so concurrent reads never block a cycle in progress.
type BooksProvider func() []*bookfetcher.MatchBooks

// BooksHandler serves a read-only snapshot of the latest book fetch cycle.
type BooksHandler struct {
	provider BooksProvider
	logger   *zap.Logger
}

// NewBooksHandler creates a new books handler.
func NewBooksHandler(provider BooksProvider, logger *zap.Logger) *BooksHandler {
	return &BooksHandler{provider: provider, logger: logger}
}

// BookQuoteResponse is the best bid/ask summary for one token's book.
type BookQuoteResponse struct {
	BestBidPrice float64 `json:"best_bid_price"`
	BestBidSize  float64 `json:"best_bid_size"`
	BestAskPrice float64 `json:"best_ask_price"`
	BestAskSize  float64 `json:"best_ask_size"`
}

// MatchBooksResponse is one match's four book quotes.
type MatchBooksResponse struct {
	Slug     string             `json:"slug"`
	Question string             `json:"question"`
	YesA     *BookQuoteResponse `json:"yes_a,omitempty"`
	NoA      *BookQuoteResponse `json:"no_a,omitempty"`
	YesB     *BookQuoteResponse `json:"yes_b,omitempty"`
	NoB      *BookQuoteResponse `json:"no_b,omitempty"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleBooks handles GET /api/books?slug=<venue-b-slug> requests. Without a
// slug, it returns every match from the latest cycle.
func (h *BooksHandler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slug := r.URL.Query().Get("slug")
	books := h.provider()

	out := make([]MatchBooksResponse, 0, len(books))
	for _, mb := range books {
		if mb == nil || mb.Match == nil {
			continue
		}
		if slug != "" && mb.Match.VenueBSlug != slug {
			continue
		}
		out = append(out, MatchBooksResponse{
			Slug:     mb.Match.VenueBSlug,
			Question: mb.Match.Question,
			YesA:     quote(mb.YesA),
			NoA:      quote(mb.NoA),
			YesB:     quote(mb.YesB),
			NoB:      quote(mb.NoB),
		})
	}

	if slug != "" && len(out) == 0 {
		h.writeError(w, "match not found in latest cycle", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(out)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func quote(snap *types.OrderBookSnapshot) *BookQuoteResponse {
	if snap == nil {
		return nil
	}
	resp := &BookQuoteResponse{}
	if bid, ok := snap.BestBid(); ok {
		resp.BestBidPrice = bid.Price
		resp.BestBidSize = bid.Size
	}
	if ask, ok := snap.BestAsk(); ok {
		resp.BestAskPrice = ask.Price
		resp.BestAskSize = ask.Size
	}
	return resp
}

// writeError writes a JSON error response.
func (h *BooksHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
