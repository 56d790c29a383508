package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/bookfetcher"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	tests := []struct {
		name      string
		cfg       *Config
		wantPanic bool
	}{
		{
			name: "valid_config_minimal",
			cfg: &Config{
				Port:          "8080",
				Logger:        logger,
				HealthChecker: healthChecker,
			},
			wantPanic: false,
		},
		{
			name: "valid_config_with_books_provider",
			cfg: &Config{
				Port:          "8080",
				Logger:        logger,
				HealthChecker: healthChecker,
				BooksProvider: func() []*bookfetcher.MatchBooks { return nil },
			},
			wantPanic: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if (r != nil) != tt.wantPanic {
					t.Errorf("New() panic = %v, wantPanic %v", r, tt.wantPanic)
				}
			}()

			server := New(tt.cfg)
			if server == nil {
				t.Error("New() returned nil server")
			}
			if server.server == nil {
				t.Error("New() server.server is nil")
			}
			if server.logger != tt.cfg.Logger {
				t.Error("New() logger not set correctly")
			}
			if server.healthChecker != tt.cfg.HealthChecker {
				t.Error("New() healthChecker not set correctly")
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{
			name:           "ready_when_set",
			setReady:       true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not_ready_initially",
			setReady:       false,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}

			cfg := &Config{
				Port:          "0",
				Logger:        logger,
				HealthChecker: hc,
			}

			server := New(cfg)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if resp.Header.Get("Content-Type") == "" {
		t.Error("Metrics endpoint missing Content-Type header")
	}
}

func TestBooksHandler_MatchNotFound(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		BooksProvider: func() []*bookfetcher.MatchBooks { return nil },
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/books?slug=non-existent-market", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Match not found status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var errResp ErrorResponse
	err := json.NewDecoder(resp.Body).Decode(&errResp)
	if err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("Error response missing error message")
	}
}

func TestBooksHandler_ReturnsAllMatchesWithoutSlug(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	books := []*bookfetcher.MatchBooks{
		{
			Match: &types.MarketMatch{VenueBSlug: "will-it-happen", Question: "will it happen"},
			YesA: &types.OrderBookSnapshot{
				Bids: []types.OrderBookLevel{{Price: 0.4, Size: 100}},
				Asks: []types.OrderBookLevel{{Price: 0.42, Size: 100}},
			},
		},
	}

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		BooksProvider: func() []*bookfetcher.MatchBooks { return books },
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Books endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out []MatchBooksResponse
	err := json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 match, got %d", len(out))
	}
	if out[0].YesA == nil || out[0].YesA.BestAskPrice != 0.42 {
		t.Errorf("unexpected yes_a quote: %+v", out[0].YesA)
	}
}

func TestBooksHandler_MethodNotAllowed(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		BooksProvider: func() []*bookfetcher.MatchBooks { return nil },
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/books?slug=test-market", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Method not allowed status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_RouteNotFound(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Non-existent route status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestBooksEndpoint_OnlyWithProvider(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	tests := []struct {
		name           string
		includeBooks   bool
		expectEndpoint bool
	}{
		{name: "provider_set", includeBooks: true, expectEndpoint: true},
		{name: "provider_missing", includeBooks: false, expectEndpoint: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:          "0",
				Logger:        logger,
				HealthChecker: healthChecker,
			}
			if tt.includeBooks {
				cfg.BooksProvider = func() []*bookfetcher.MatchBooks { return nil }
			}

			server := New(cfg)

			req := httptest.NewRequest(http.MethodGet, "/api/books?slug=test", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if tt.expectEndpoint {
				if resp.StatusCode != http.StatusNotFound {
					t.Errorf("expected 404 (no matching slug), got %d", resp.StatusCode)
				}
			} else {
				if resp.StatusCode != http.StatusNotFound {
					t.Errorf("expected route-not-found 404, got %d", resp.StatusCode)
				}
			}
		})
	}
}
