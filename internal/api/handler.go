package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/balance"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/exchange"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/history"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/portfolio"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/presentation"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/price"
)

const maxBodyBytes = 1 << 16

// Handler provides HTTP endpoints for the portfolio API.
type Handler struct {
	registry *portfolio.Registry
	prices   *price.Table
	adapter  *presentation.Adapter
	history  *history.Service

	heartbeat time.Duration
}

// NewHandler creates a new API handler. history may be nil when no database is configured.
func NewHandler(registry *portfolio.Registry, prices *price.Table, adapter *presentation.Adapter, hist *history.Service) *Handler {
	return &Handler{registry: registry, prices: prices, adapter: adapter, history: hist, heartbeat: defaultStreamHeartbeat}
}

type sessionHandlerFunc func(w http.ResponseWriter, r *http.Request, s *portfolio.Session)

// withSession resolves the caller's session from the bearer token, opening
// one on first use.
func (h *Handler) withSession(next sessionHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		s, err := h.registry.Open(r.Context(), token)
		if err != nil {
			writeDomainError(w, "opening session", err)
			return
		}
		next(w, r, s)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

func queryLimit(r *http.Request, def, maxLimit int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}
	return limit
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeDomainError maps the error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	var (
		vErr   *domain.ValidationError
		apiErr *exchange.APIError
	)
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": vErr.Message, "field": vErr.Field})
	case errors.Is(err, balance.ErrInvalidDelta):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, exchange.ErrUnauthorized), errors.Is(err, portfolio.ErrNoSession):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, portfolio.ErrSessionClosed):
		writeError(w, http.StatusGone, "session closed")
	case errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, "no history recorded")
	case errors.Is(err, domain.ErrBusinessRule) && errors.As(err, &apiErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": apiErr.Message, "code": apiErr.Code})
	case errors.Is(err, domain.ErrBusinessRule):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNetwork):
		slog.Warn("upstream unavailable", "op", op, "error", err)
		writeError(w, http.StatusBadGateway, "exchange unavailable")
	default:
		slog.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
