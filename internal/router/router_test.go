package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iuliaszarics/WhiskersWonderland/internal/app"
	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/handler"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/metrics"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository/memory"
	"github.com/iuliaszarics/WhiskersWonderland/internal/service"
)

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return errors.New("down") }

type testServer struct {
	t     *testing.T
	app   *app.App
	store *memory.Store
	cfg   *config.Config
	srv   http.Handler
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Security.Tokens.Secret = "test-secret"
	cfg.Security.Password.BcryptCost = 4
	cfg.Security.RateLimiting.Enabled = false
	for _, fn := range mutate {
		fn(cfg)
	}

	store := memory.New()
	a, err := app.New(cfg, logger.Nop(), app.Options{
		Stores: app.Stores{
			Users:      store.Users(),
			Activities: store.Activities(),
			Catalog:    store.Catalog(),
		},
		Metrics: metrics.New(),
		Checks:  map[string]handler.HealthChecker{"store": store},
	})
	require.NoError(t, err)

	return &testServer{t: t, app: a, store: store, cfg: cfg, srv: a.Handler}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	s.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.srv.ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (s *testServer) register(username, email, password string) string {
	s.t.Helper()
	rec, body := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["token"].(string)
}

func (s *testServer) code(secret string) string {
	s.t.Helper()
	c, err := s.app.TOTP.GenerateCode(secret)
	require.NoError(s.t, err)
	return c
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "alice@x.com", "pw123")

	rec, body := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credentials", body["error"])
	require.NotEmpty(t, body["message"])

	rec, body = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "pw123"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, body, "requiresTwoFactor")

	claims, err := s.app.Tokens.VerifySession(body["token"].(string))
	require.NoError(t, err)
	require.Equal(t, int64(1), claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, model.RoleUser, claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "alice@x.com", "pw123")

	rec, body := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "email_exists", body["error"])

	rec, body = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": "bob"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_error", body["error"])
}

func TestTwoFactorFlow(t *testing.T) {
	s := newTestServer(t)
	session := s.register("alice", "alice@x.com", "pw123")

	rec, body := s.do(http.MethodGet, "/api/auth/2fa-status", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["enabled"])

	rec, body = s.do(http.MethodPost, "/api/auth/setup-2fa", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	secret := body["secret"].(string)
	require.Contains(t, body["qrCode"], "data:image/png;base64,")

	t.Run("legacy code field is rejected", func(t *testing.T) {
		rec, _ := s.do(http.MethodPost, "/api/auth/verify-2fa", session, map[string]string{"code": s.code(secret)})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec, body = s.do(http.MethodPost, "/api/auth/verify-2fa", session, map[string]string{"token": "000000x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_code", body["error"])

	rec, body = s.do(http.MethodPost, "/api/auth/verify-2fa", session, map[string]string{"token": s.code(secret)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])

	rec, body = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "pw123"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["requiresTwoFactor"])
	require.NotContains(t, body, "token")
	temp := body["tempToken"].(string)

	t.Run("temp token is not a session", func(t *testing.T) {
		rec, body := s.do(http.MethodGet, "/api/auth/2fa-status", temp, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_token", body["error"])

		for _, route := range []struct{ method, path string }{
			{http.MethodPost, "/api/auth/setup-2fa"},
			{http.MethodPost, "/api/auth/verify-2fa"},
			{http.MethodPost, "/api/auth/disable-2fa"},
			{http.MethodGet, "/api/admin/users"},
			{http.MethodGet, "/api/admin/stats"},
		} {
			rec, body := s.do(route.method, route.path, temp, map[string]string{"token": s.code(secret)})
			require.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
			require.Equal(t, "invalid_token", body["error"], route.path)
		}

		enabled, err := s.app.TwoFactor.Status(context.Background(), 1)
		require.NoError(t, err)
		require.True(t, enabled)
	})

	t.Run("session is not a temp token", func(t *testing.T) {
		rec, body := s.do(http.MethodPost, "/api/auth/verify-2fa-login", "", map[string]string{
			"tempToken": session, "token": s.code(secret),
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_token", body["error"])
	})

	rec, body = s.do(http.MethodPost, "/api/auth/verify-2fa-login", "", map[string]string{
		"tempToken": temp, "token": s.code(secret),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	full := body["token"].(string)
	claims, err := s.app.Tokens.VerifySession(full)
	require.NoError(t, err)
	require.False(t, claims.Temporary)

	rec, body = s.do(http.MethodPost, "/api/auth/setup-2fa", full, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "two_factor_already_enabled", body["error"])

	rec, _ = s.do(http.MethodPost, "/api/auth/disable-2fa", full, map[string]string{"token": s.code(secret)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(http.MethodGet, "/api/auth/2fa-status", full, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["enabled"])

	rec, body = s.do(http.MethodPost, "/api/auth/disable-2fa", full, map[string]string{"token": s.code(secret)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "two_factor_not_enabled", body["error"])
}

func TestVerifyWithoutSetup(t *testing.T) {
	s := newTestServer(t)
	session := s.register("alice", "alice@x.com", "pw123")

	rec, body := s.do(http.MethodPost, "/api/auth/verify-2fa", session, map[string]string{"token": "123456"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "two_factor_not_set_up", body["error"])
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.app.Auth.CreateUser(ctx, service.RegisterRequest{Username: "root", Email: "root@x.com", Password: "pw"}, model.RoleAdmin)
	require.NoError(t, err)
	userToken := s.register("alice", "alice@x.com", "pw123")

	_, body := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "root@x.com", "password": "pw"})
	adminToken := body["token"].(string)

	rec, body := s.do(http.MethodGet, "/api/admin/users", userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", body["error"])

	rec, _ = s.do(http.MethodGet, "/api/admin/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	require.NotContains(t, users[0], "passwordHash")
	require.NotContains(t, users[0], "twoFactorSecret")

	rec, body = s.do(http.MethodPut, "/api/admin/users/2/toggle-monitor", adminToken, map[string]bool{"isMonitored": true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["user"].(map[string]interface{})["isMonitored"])

	rec, _ = s.do(http.MethodPut, "/api/admin/users/99/toggle-monitor", adminToken, map[string]bool{"isMonitored": true})
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(http.MethodPut, "/api/admin/users/abc/toggle-monitor", adminToken, map[string]bool{"isMonitored": true})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(http.MethodPut, "/api/admin/users/2/toggle-monitor", adminToken, map[string]string{"isMonitored": "yes"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("toggle without a body flips the flag", func(t *testing.T) {
		rec, body := s.do(http.MethodPut, "/api/admin/users/2/toggle-monitor", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Monitoring disabled", body["message"])
		require.Equal(t, false, body["user"].(map[string]interface{})["isMonitored"])

		rec, body = s.do(http.MethodPut, "/api/admin/users/2/toggle-monitor", adminToken, map[string]string{})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Monitoring enabled", body["message"])
		require.Equal(t, true, body["user"].(map[string]interface{})["isMonitored"])
	})

	rec, _ = s.do(http.MethodGet, "/api/admin/monitored-users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var monitored []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &monitored))
	require.Len(t, monitored, 1)
	require.Equal(t, "alice", monitored[0]["username"])
	require.NotEmpty(t, monitored[0]["activities"])

	rec, _ = s.do(http.MethodGet, "/api/admin/user-activity/1", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var acts []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acts))
	require.Equal(t, "Set monitoring status to true", acts[0]["details"])

	s.store.SetCatalogCounts(4, 2)
	rec, body = s.do(http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(2), body["totalUsers"])
	require.Equal(t, float64(4), body["totalAnimals"])
	require.Equal(t, float64(1), body["monitoredUsers"])

	rec, body = s.do(http.MethodPost, "/api/admin/force-monitor-check", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), body["monitoredUsers"])

	t.Run("demotion takes effect before token expiry", func(t *testing.T) {
		_, err := s.app.Admin.SetRoleByEmail(ctx, "root@x.com", model.RoleUser)
		require.NoError(t, err)
		rec, _ := s.do(http.MethodGet, "/api/admin/stats", adminToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = s.do(http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `whiskers_http_requests_total{method="GET",route="GET /health",status="200"} 1`)
}

func TestHealthDegraded(t *testing.T) {
	cfg := config.Default()
	cfg.Security.Tokens.Secret = "test-secret"
	store := memory.New()
	a, err := app.New(cfg, logger.Nop(), app.Options{
		Stores: app.Stores{Users: store.Users(), Activities: store.Activities(), Catalog: store.Catalog()},
		Checks: map[string]handler.HealthChecker{"postgres": failingCheck{}},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"postgres":"unhealthy"`)

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", body["error"])
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Security.RateLimiting.Enabled = true })
	s.register("alice", "alice@x.com", "pw123")

	for i := 0; i < 5; i++ {
		rec, _ := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "bad"})
		require.Equal(t, http.StatusUnauthorized, rec.Code, fmt.Sprint("attempt ", i))
	}
	rec, body := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "pw123"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limit_exceeded", body["error"])
}
