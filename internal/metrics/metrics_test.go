package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveLogin(LoginSuccess)
	m.ObserveLogin(LoginSuccess)
	m.ObserveLogin(LoginInvalid)
	m.ObserveTwoFactor(TwoFactorEnabled)
	m.ObserveRegistration()

	require.Equal(t, 2.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginInvalid)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.twoFactorEvents.WithLabelValues(TwoFactorEnabled)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.registrations))
}

func TestNilReceiver(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveLogin(LoginSuccess)
		m.ObserveTwoFactor(TwoFactorSetup)
		m.ObserveRegistration()
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP("POST", "POST /api/auth/login", 401, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `whiskers_http_requests_total{method="POST",route="POST /api/auth/login",status="401"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
