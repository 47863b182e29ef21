package obs

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthEvent(t *testing.T) {
	m := NewMetrics()
	m.AuthEvent("login", OutcomeOK)
	m.AuthEvent("login", OutcomeOK)
	m.AuthEvent("login", OutcomeRejected)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", OutcomeRejected)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.AuthEvent("login", OutcomeOK)
	m.ObserveHTTP(http.MethodGet, "/todos", http.StatusOK, time.Millisecond)
}

func TestHandlerExposesSeries(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTP(http.MethodPost, "/auth/login", http.StatusUnauthorized, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `http_requests_total{method="POST",route="/auth/login",status="401"} 1`)
	assert.Contains(t, string(body), "http_request_duration_seconds_bucket")
}

func TestNewMetricsTwiceDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
