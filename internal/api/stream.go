package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/portfolio"
)

const defaultStreamHeartbeat = 30 * time.Second

// StreamPortfolio handles GET /api/v1/portfolio/stream as server-sent events.
// The current valuation is sent first, then every recomputation, with a
// comment heartbeat so proxies keep the connection open. The stream lifts
// the server read and write deadlines and renews the session on every
// heartbeat, so it lives as long as the client stays connected.
func (h *Handler) StreamPortfolio(w http.ResponseWriter, r *http.Request, s *portfolio.Session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("portfolio stream: clearing write deadline failed", "error", err)
	}
	if err := rc.SetReadDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("portfolio stream: clearing read deadline failed", "error", err)
	}
	token, _ := bearerToken(r)

	updates := s.Subscribe()
	defer s.Unsubscribe(updates)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(p domain.Portfolio) error {
		payload, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: portfolio\ndata: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send(s.Portfolio()); err != nil {
		slog.Warn("portfolio stream initial send failed", "error", err)
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := h.registry.Get(token); err != nil {
				slog.Debug("portfolio stream: session no longer registered", "error", err)
			}
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case p, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if err := send(p); err != nil {
				slog.Warn("portfolio stream send failed", "error", err)
				return
			}
		}
	}
}
