package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{name: "valid key", header: "Bearer admin-key", wantStatus: http.StatusOK, wantCalled: true},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer user-token", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic admin-key", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/history/record", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			requireAuth("admin-key", next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestNewServerTimeouts(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := NewServer("9090", Deps{Registry: env.registry})

	assert.Equal(t, ":9090", srv.Addr)
	assert.NotZero(t, srv.ReadTimeout)
	assert.Greater(t, srv.WriteTimeout, srv.ReadTimeout)
}

func TestMetricsRouteAbsentWithoutMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownMethodRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPut, "/api/v1/portfolio", "tok-a", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
