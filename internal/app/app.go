// Package app assembles services, middleware and routes into one http.Handler.
package app

import (
	"fmt"
	"net/http"

	"github.com/iuliaszarics/WhiskersWonderland/internal/auth"
	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/email"
	"github.com/iuliaszarics/WhiskersWonderland/internal/handler"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/metrics"
	"github.com/iuliaszarics/WhiskersWonderland/internal/middleware"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository/memory"
	"github.com/iuliaszarics/WhiskersWonderland/internal/router"
	"github.com/iuliaszarics/WhiskersWonderland/internal/service"
)

var (
	_ service.UserStore     = (*repository.UserRepository)(nil)
	_ service.ActivityStore = (*repository.ActivityRepository)(nil)
	_ service.CatalogStore  = (*repository.CatalogRepository)(nil)
	_ service.UserStore     = (*memory.Users)(nil)
	_ service.ActivityStore = (*memory.Activities)(nil)
	_ service.CatalogStore  = (*memory.Catalog)(nil)
)

// Stores are the persistence backends
type Stores struct {
	Users      service.UserStore
	Activities service.ActivityStore
	Catalog    service.CatalogStore
}

// Options carry the infrastructure built by the caller
type Options struct {
	Stores  Stores
	Counter middleware.Counter
	Sender  email.Sender
	Metrics *metrics.Metrics
	Checks  map[string]handler.HealthChecker
}

// App is the assembled application
type App struct {
	Handler   http.Handler
	Tokens    *auth.TokenService
	TOTP      *auth.TOTP
	Auth      *service.AuthService
	TwoFactor *service.TwoFactorService
	Admin     *service.AdminService
}

// New wires services and routes from cfg and opts
func New(cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	tokens, err := auth.NewTokenService(cfg.Security.Tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	totp := auth.NewTOTP(cfg.TwoFactor)
	hasher := auth.NewPasswordHasher(cfg.Security.Password.BcryptCost)

	if opts.Counter == nil {
		opts.Counter = middleware.NewMemoryCounter()
	}
	if opts.Sender == nil {
		opts.Sender = email.NopSender{}
	}

	s := opts.Stores
	authSvc := service.NewAuthService(s.Users, s.Activities, hasher, tokens, totp, opts.Metrics, cfg, log)
	twoFactorSvc := service.NewTwoFactorService(s.Users, s.Activities, totp, opts.Sender, opts.Metrics, cfg, log)
	adminSvc := service.NewAdminService(s.Users, s.Activities, s.Catalog, log)

	h := handler.New(log, cfg, authSvc, twoFactorSvc, adminSvc, opts.Checks)
	mw := middleware.New(opts.Counter, opts.Metrics, log, cfg)

	return &App{
		Handler: router.New(router.Deps{
			Handler:     h,
			Middleware:  mw,
			Tokens:      tokens,
			Metrics:     opts.Metrics,
			RoleLookup:  adminSvc.CurrentRole,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		Tokens:    tokens,
		TOTP:      totp,
		Auth:      authSvc,
		TwoFactor: twoFactorSvc,
		Admin:     adminSvc,
	}, nil
}
