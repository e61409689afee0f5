package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRefresh(t *testing.T) {
	m := New()

	m.ObserveRefresh("prices", nil)
	m.ObserveRefresh("prices", nil)
	m.ObserveRefresh("prices", errors.New("timeout"))
	m.ObserveRefresh("balances", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.refreshes.WithLabelValues("prices", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("prices", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("balances", "ok")))
	assert.Positive(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("prices")))
}

func TestSetActiveSessions(t *testing.T) {
	m := New()
	m.SetActiveSessions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeSessions))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetActiveSessions(1)

	h := m.Instrument("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "portfolio_active_sessions 1"))
	assert.True(t, strings.Contains(string(body), `portfolio_http_request_duration_seconds_count{code="200",method="get",route="/healthz"} 1`))
}
