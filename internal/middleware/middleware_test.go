package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iuliaszarics/WhiskersWonderland/internal/auth"
	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/metrics"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
	"github.com/iuliaszarics/WhiskersWonderland/internal/service"
)

func newTestMiddleware(t *testing.T) (*Middleware, *auth.TokenService) {
	t.Helper()
	cfg := config.Default()
	cfg.Security.Tokens.Secret = "test-secret"
	tokens, err := auth.NewTokenService(cfg.Security.Tokens)
	require.NoError(t, err)
	return New(NewMemoryCounter(), metrics.New(), logger.Nop(), cfg), tokens
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuth(t *testing.T) {
	m, tokens := newTestMiddleware(t)
	alice := &model.User{ID: 7, Username: "alice", Role: model.RoleUser}

	var seen *auth.TokenClaims
	h := m.Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFrom(r.Context())
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "unauthorized", decodeError(t, rec).Error)
	})

	t.Run("pre-auth token", func(t *testing.T) {
		pre, err := tokens.IssuePreAuth(alice)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pre)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_token", decodeError(t, rec).Error)
	})

	t.Run("session token", func(t *testing.T) {
		session, err := tokens.IssueSession(alice)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+session)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		require.Equal(t, int64(7), seen.UserID)
	})
}

func TestRequireRole(t *testing.T) {
	m, _ := newTestMiddleware(t)

	roles := map[int64]model.Role{1: model.RoleAdmin, 2: model.RoleUser}
	lookup := func(ctx context.Context, id int64) (model.Role, error) {
		role, found := roles[id]
		if !found {
			return "", service.ErrUserNotFound
		}
		if id == 3 {
			return "", errors.New("db down")
		}
		return role, nil
	}
	h := m.RequireRole(model.RoleAdmin, lookup)(ok)

	serve := func(claims *auth.TokenClaims) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if claims != nil {
			req = req.WithContext(context.WithValue(req.Context(), ClaimsKey, claims))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, serve(&auth.TokenClaims{UserID: 1, Role: model.RoleUser}))
	// A stale admin claim does not outlive a demotion.
	require.Equal(t, http.StatusForbidden, serve(&auth.TokenClaims{UserID: 2, Role: model.RoleAdmin}))
	require.Equal(t, http.StatusUnauthorized, serve(&auth.TokenClaims{UserID: 9}))
	require.Equal(t, http.StatusUnauthorized, serve(nil))

	roles[3] = model.RoleAdmin
	require.Equal(t, http.StatusInternalServerError, serve(&auth.TokenClaims{UserID: 3}))
}

func TestRateLimit(t *testing.T) {
	m, _ := newTestMiddleware(t)
	h := m.RateLimit(RateLimitConfig{Name: "login", Limit: 2, Window: time.Minute, KeyFn: IPKey})(ok)

	serve := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusNoContent, serve("10.0.0.1").Code)
	rec := serve("10.0.0.1")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "rate_limit_exceeded", decodeError(t, rec).Error)

	require.Equal(t, http.StatusNoContent, serve("10.0.0.2").Code)

	m.cfg.Security.RateLimiting.Enabled = false
	require.Equal(t, http.StatusNoContent, serve("10.0.0.1").Code)
}

func TestMemoryCounterWindow(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	n, ttl, err := c.Increment(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, 50*time.Millisecond, ttl)

	n, _, err = c.Increment(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	time.Sleep(80 * time.Millisecond)
	n, _, err = c.Increment(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRecover(t *testing.T) {
	m, _ := newTestMiddleware(t)
	h := m.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "internal_error", body.Error)
	require.Equal(t, "boom", body.Detail)
	require.NotEmpty(t, body.Stack)

	m.cfg.App.Env = "production"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body = decodeError(t, rec)
	require.Empty(t, body.Detail)
	require.Empty(t, body.Stack)
}

func TestRequestID(t *testing.T) {
	m, _ := newTestMiddleware(t)
	var seen string
	h := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "abc", seen)
}

func TestCORS(t *testing.T) {
	m, _ := newTestMiddleware(t)
	h := m.CORS([]string{"http://localhost:3000/"})(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestClientIP(t *testing.T) {
	resolve := func(m *Middleware, req *http.Request) string {
		var seen string
		m.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = ClientIP(r)
		})).ServeHTTP(httptest.NewRecorder(), req)
		return seen
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	require.Equal(t, "192.0.2.1", ClientIP(req))

	t.Run("forwarded header ignored without trusted proxies", func(t *testing.T) {
		m, _ := newTestMiddleware(t)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		require.Equal(t, "192.0.2.1", resolve(m, req))
	})

	t.Run("trusted proxy", func(t *testing.T) {
		cfg := config.Default()
		cfg.Server.TrustedProxies = []string{"10.0.0.0/8"}
		m := New(NewMemoryCounter(), metrics.New(), logger.Nop(), cfg)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.5:443"
		req.Header.Set("X-Forwarded-For", "198.51.100.4, 203.0.113.9, 10.0.0.2")
		require.Equal(t, "203.0.113.9", resolve(m, req))

		req.Header.Del("X-Forwarded-For")
		require.Equal(t, "10.0.0.5", resolve(m, req))
	})
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	m, _ := newTestMiddleware(t)
	h := m.RealIP(m.RateLimit(RateLimitConfig{Name: "verify", Limit: 1, Window: time.Minute, KeyFn: IPKey})(ok))

	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code)
	}
}
