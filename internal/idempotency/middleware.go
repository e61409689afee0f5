package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const (
	// HeaderKey carries the client-chosen idempotency key.
	HeaderKey = "Idempotency-Key"

	keyPrefix        = "idempotency:v1:"
	inProgressMarker = "__in_progress__"
	storeTimeout     = 2 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Middleware replays the stored response of a POST carrying an
// Idempotency-Key seen before for the same bearer token. Requests without
// the header pass through. A concurrent duplicate gets 409 and a 5xx
// outcome is not stored so the client may retry.
func Middleware(store Store, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			cacheKey := keyPrefix + scope(r) + ":" + key

			ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
			defer cancel()

			if cached, ok, err := store.Get(ctx, cacheKey); err != nil {
				logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "idempotency store failure")
				return
			} else if ok {
				replay(w, cached, key, logger)
				return
			}

			reserved, err := store.Reserve(ctx, cacheKey, inProgressMarker, ttl)
			if err != nil {
				logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "idempotency reservation failure")
				return
			}
			if !reserved {
				writeError(w, http.StatusConflict, "duplicate request currently processing")
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			persistCtx, persistCancel := context.WithTimeout(context.Background(), storeTimeout)
			defer persistCancel()

			if rec.status >= http.StatusInternalServerError {
				_ = store.Delete(persistCtx, cacheKey)
				return
			}

			stored := storedResponse{Status: rec.status, Body: rec.body.String(), Headers: map[string]string{}}
			for k := range rec.Header() {
				stored.Headers[k] = rec.Header().Get(k)
			}
			payload, err := json.Marshal(stored)
			if err == nil {
				err = store.Set(persistCtx, cacheKey, string(payload), ttl)
			}
			if err != nil {
				logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
				_ = store.Delete(persistCtx, cacheKey)
			}
		})
	}
}

func replay(w http.ResponseWriter, cached, key string, logger *slog.Logger) {
	if cached == inProgressMarker {
		writeError(w, http.StatusConflict, "duplicate request currently processing")
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		writeError(w, http.StatusConflict, "duplicate request")
		return
	}
	for k, v := range stored.Headers {
		if http.CanonicalHeaderKey(k) == "Content-Length" {
			continue
		}
		w.Header().Set(k, v)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write([]byte(stored.Body))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// scope isolates keys per bearer token without storing the token itself.
func scope(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.Header.Get("Authorization")))
	return hex.EncodeToString(sum[:8])
}

type recorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
