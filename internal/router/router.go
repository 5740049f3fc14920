package router

import (
	"net/http"
	"time"

	"github.com/iuliaszarics/WhiskersWonderland/internal/auth"
	"github.com/iuliaszarics/WhiskersWonderland/internal/handler"
	"github.com/iuliaszarics/WhiskersWonderland/internal/metrics"
	"github.com/iuliaszarics/WhiskersWonderland/internal/middleware"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
)

// Deps are the pieces the router wires together
type Deps struct {
	Handler     *handler.Handler
	Middleware  *middleware.Middleware
	Tokens      *auth.TokenService
	Metrics     *metrics.Metrics
	RoleLookup  middleware.RoleLookup
	CORSOrigins []string
}

// New creates and configures the HTTP router
func New(d Deps) http.Handler {
	h, mw := d.Handler, d.Middleware
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// Public authentication routes (rate limited)
	loginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "login",
		Limit:  5,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	registerRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "register",
		Limit:  3,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})
	verifyLoginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "verify-2fa-login",
		Limit:  5,
		Window: 5 * time.Minute,
		KeyFn:  middleware.IPKey,
	})

	mux.Handle("POST /api/auth/register", registerRateLimit(http.HandlerFunc(h.Register)))
	mux.Handle("POST /api/auth/login", loginRateLimit(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/auth/verify-2fa-login", verifyLoginRateLimit(http.HandlerFunc(h.VerifyTwoFactorLogin)))

	// Two-factor management (session required)
	authMw := mw.Auth(d.Tokens)
	twoFactorRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "two-factor",
		Limit:  10,
		Window: 1 * time.Minute,
		KeyFn:  middleware.UserKey,
	})

	mux.Handle("POST /api/auth/setup-2fa", authMw(twoFactorRateLimit(http.HandlerFunc(h.SetupTwoFactor))))
	mux.Handle("POST /api/auth/verify-2fa", authMw(twoFactorRateLimit(http.HandlerFunc(h.VerifyTwoFactor))))
	mux.Handle("GET /api/auth/2fa-status", authMw(http.HandlerFunc(h.TwoFactorStatus)))
	mux.Handle("POST /api/auth/disable-2fa", authMw(twoFactorRateLimit(http.HandlerFunc(h.DisableTwoFactor))))

	// Admin routes
	admin := func(next http.HandlerFunc) http.Handler {
		return authMw(mw.RequireRole(model.RoleAdmin, d.RoleLookup)(next))
	}

	mux.Handle("GET /api/admin/users", admin(h.AdminListUsers))
	mux.Handle("PUT /api/admin/users/{id}/toggle-monitor", admin(h.AdminToggleMonitor))
	mux.Handle("GET /api/admin/monitored-users", admin(h.AdminMonitoredUsers))
	mux.Handle("GET /api/admin/user-activity/{userId}", admin(h.AdminUserActivity))
	mux.Handle("GET /api/admin/stats", admin(h.AdminStats))
	mux.Handle("POST /api/admin/force-monitor-check", admin(h.AdminForceMonitorCheck))

	mux.HandleFunc("/", h.NotFound)

	// Apply middleware stack
	var handler http.Handler = mux

	// Metrics (innermost, reads the matched pattern)
	handler = mw.Metrics(handler)

	// CORS
	handler = mw.CORS(d.CORSOrigins)(handler)

	// Security headers
	handler = mw.SecurityHeaders(handler)

	// Request logging
	handler = mw.Logger(handler)

	// Client address
	handler = mw.RealIP(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
