package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/history"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/idempotency"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/metrics"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/portfolio"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/presentation"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/price"
)

// Deps are the collaborators the HTTP server routes to. History, Metrics and
// Idempotency are optional.
type Deps struct {
	Registry       *portfolio.Registry
	Prices         *price.Table
	Adapter        *presentation.Adapter
	History        *history.Service
	Metrics        *metrics.Metrics
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	AdminAPIKey    string
	Logger         *slog.Logger

	// StreamHeartbeat overrides the SSE heartbeat; it must stay below the
	// session idle TTL because each heartbeat renews the session.
	StreamHeartbeat time.Duration
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, deps Deps) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter builds the route table. Split from NewServer so tests can mount it
// on httptest.
func NewRouter(deps Deps) http.Handler {
	handler := NewHandler(deps.Registry, deps.Prices, deps.Adapter, deps.History)
	if deps.StreamHeartbeat > 0 {
		handler.heartbeat = deps.StreamHeartbeat
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	route := func(pattern string, h http.Handler) {
		if deps.Metrics != nil {
			h = deps.Metrics.Instrument(pattern, h)
		}
		mux.Handle(pattern, h)
	}
	idempotent := func(h http.Handler) http.Handler {
		if deps.Idempotency == nil {
			return h
		}
		return idempotency.Middleware(deps.Idempotency, deps.IdempotencyTTL, logger)(h)
	}
	admin := func(h http.Handler) http.Handler {
		if deps.AdminAPIKey == "" {
			return h
		}
		return requireAuth(deps.AdminAPIKey, h)
	}

	route("GET /healthz", http.HandlerFunc(handler.Health))
	route("GET /api/v1/prices", http.HandlerFunc(handler.GetPrices))
	route("GET /api/v1/buy/{asset}", http.HandlerFunc(handler.BuyShortcut))

	route("POST /api/v1/session", handler.withSession(handler.OpenSession))
	route("DELETE /api/v1/session", http.HandlerFunc(handler.CloseSession))

	route("GET /api/v1/portfolio", handler.withSession(handler.GetPortfolio))
	route("GET /api/v1/portfolio/table", handler.withSession(handler.GetTable))
	route("GET /api/v1/portfolio/card", handler.withSession(handler.GetCard))
	route("GET /api/v1/portfolio/stream", handler.withSession(handler.StreamPortfolio))
	route("GET /api/v1/portfolio/export.xlsx", handler.withSession(handler.ExportXLSX))

	route("POST /api/v1/balances/refresh", handler.withSession(handler.RefreshBalances))
	route("POST /api/v1/balances/await-deposit", handler.withSession(handler.AwaitDeposit))

	route("GET /api/v1/watchlist", handler.withSession(handler.GetWatchlist))
	route("POST /api/v1/watchlist/{asset}/toggle", handler.withSession(handler.ToggleWatchlist))

	route("POST /api/v1/fiat/deposit-intents", idempotent(handler.withSession(handler.CreateDepositIntent)))
	route("POST /api/v1/fiat/withdrawals", idempotent(handler.withSession(handler.CreateWithdrawal)))
	route("GET /api/v1/fiat/transactions", handler.withSession(handler.ListFiatTransactions))

	route("GET /api/v1/orders", handler.withSession(handler.ListOrders))
	route("GET /api/v1/history", handler.withSession(handler.ListHistory))
	route("POST /api/v1/history/record", admin(http.HandlerFunc(handler.RecordHistory)))

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", admin(deps.Metrics.Handler()))
	}

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
