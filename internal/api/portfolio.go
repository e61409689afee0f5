package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/balance"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/export"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/portfolio"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/presentation"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/price"
)

type sessionResponse struct {
	SessionID string            `json:"sessionId"`
	Card      presentation.Card `json:"card"`
}

// OpenSession handles POST /api/v1/session.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: s.Key()[:16],
		Card:      h.adapter.Card(s.Portfolio()),
	})
}

// CloseSession handles DELETE /api/v1/session. Closing twice is not an error.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	h.registry.Close(token)
	w.WriteHeader(http.StatusNoContent)
}

// GetPortfolio handles GET /api/v1/portfolio.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	writeJSON(w, http.StatusOK, s.Portfolio())
}

// GetTable handles GET /api/v1/portfolio/table.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	writeJSON(w, http.StatusOK, h.adapter.Table(s.Portfolio(), s.Watchlist()))
}

// GetCard handles GET /api/v1/portfolio/card.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	writeJSON(w, http.StatusOK, h.adapter.Card(s.Portfolio()))
}

// ExportXLSX handles GET /api/v1/portfolio/export.xlsx.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	var entries []domain.HistoryEntry
	if h.history != nil {
		list, err := h.history.List(r.Context(), s.Key(), 365)
		if err != nil {
			slog.Warn("export: history unavailable", "error", err)
		}
		entries = list
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, s.Portfolio(), entries); err != nil {
		writeDomainError(w, "exporting xlsx", err)
		return
	}

	name := fmt.Sprintf("portfolio-%s.xlsx", time.Now().UTC().Format(time.DateOnly))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write xlsx body", "error", err)
	}
}

// RefreshBalances handles POST /api/v1/balances/refresh.
func (h *Handler) RefreshBalances(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	if err := s.RefreshBalances(r.Context()); err != nil {
		writeDomainError(w, "refreshing balances", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Revalue())
}

type awaitDepositRequest struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

type awaitDepositResponse struct {
	Result    balance.DepositResult `json:"result"`
	Portfolio domain.Portfolio      `json:"portfolio"`
}

// AwaitDeposit handles POST /api/v1/balances/await-deposit. It blocks until
// the deposit lands or the attempt cap is reached.
func (h *Handler) AwaitDeposit(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	var req awaitDepositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Asset == "" {
		req.Asset = domain.USDSymbol
	}

	res, err := s.AwaitDeposit(r.Context(), req.Asset, req.Amount)
	if err != nil {
		writeDomainError(w, "awaiting deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, awaitDepositResponse{Result: res, Portfolio: s.Revalue()})
}

type pricesResponse struct {
	price.Snapshot
	Stale bool `json:"stale"`
}

// GetPrices handles GET /api/v1/prices.
func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pricesResponse{Snapshot: h.prices.Snapshot(), Stale: h.prices.Stale()})
}

// GetWatchlist handles GET /api/v1/watchlist.
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	rows := h.adapter.WatchlistRows(s.Watchlist(), h.prices.Pairs(), s.Portfolio())
	writeJSON(w, http.StatusOK, rows)
}

type toggleResponse struct {
	Asset   string   `json:"asset"`
	Added   bool     `json:"added"`
	Members []string `json:"members"`
}

// ToggleWatchlist handles POST /api/v1/watchlist/{asset}/toggle.
func (h *Handler) ToggleWatchlist(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	asset := domain.NormalizeSymbol(r.PathValue("asset"))
	added, err := s.ToggleWatchlist(r.Context(), asset)
	if err != nil {
		writeDomainError(w, "toggling watchlist", err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Asset: asset, Added: added, Members: s.Watchlist()})
}

type buyResponse struct {
	Asset  string `json:"asset"`
	Path   string `json:"path"`
	Listed bool   `json:"listed"`
}

// BuyShortcut handles GET /api/v1/buy/{asset}.
func (h *Handler) BuyShortcut(w http.ResponseWriter, r *http.Request) {
	asset := domain.NormalizeSymbol(r.PathValue("asset"))
	if asset == "" || asset == domain.USDSymbol {
		writeError(w, http.StatusBadRequest, "asset must be a tradable symbol")
		return
	}
	_, listed := h.prices.USDPrice(asset)
	writeJSON(w, http.StatusOK, buyResponse{Asset: asset, Path: presentation.BuyShortcut(asset), Listed: listed})
}

// ListOrders handles GET /api/v1/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	orders, err := s.Orders(r.Context(), queryLimit(r, 20, 100))
	if err != nil {
		writeDomainError(w, "listing orders", err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ListHistory handles GET /api/v1/history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}
	entries, err := h.history.List(r.Context(), s.Key(), queryLimit(r, 30, 365))
	if err != nil {
		writeDomainError(w, "listing history", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// RecordHistory handles POST /api/v1/history/record for every live session.
func (h *Handler) RecordHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}
	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	entries, err := h.history.RecordAll(r.Context(), date)
	if err != nil {
		slog.Error("failed to record history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"recorded": len(entries)})
}

type healthResponse struct {
	Status          string    `json:"status"`
	PricesUpdatedAt time.Time `json:"pricesUpdatedAt"`
	PricesStale     bool      `json:"pricesStale"`
	Sessions        int       `json:"sessions"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		PricesUpdatedAt: h.prices.UpdatedAt(),
		PricesStale:     h.prices.Stale(),
		Sessions:        h.registry.Len(),
	})
}
