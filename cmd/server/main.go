package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/iuliaszarics/WhiskersWonderland/internal/app"
	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/database"
	"github.com/iuliaszarics/WhiskersWonderland/internal/email"
	"github.com/iuliaszarics/WhiskersWonderland/internal/handler"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/metrics"
	"github.com/iuliaszarics/WhiskersWonderland/internal/middleware"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository/memory"
)

func main() {
	// Load configuration
	cfg, err := config.LoadValidated()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("env", cfg.App.Env).Msg("starting WhiskersWonderland server")

	checks := make(map[string]handler.HealthChecker)
	var stores app.Stores

	switch cfg.Database.Driver {
	case "memory":
		store := memory.New()
		stores = app.Stores{Users: store.Users(), Activities: store.Activities(), Catalog: store.Catalog()}
		checks["store"] = store
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		log.Info().Msg("connected to PostgreSQL")

		if cfg.Database.AutoMigrate {
			if err := db.Migrate(); err != nil {
				log.Fatal().Err(err).Msg("failed to apply migrations")
			}
			log.Info().Msg("migrations applied")
		}

		stores = app.Stores{
			Users:      repository.NewUserRepository(db),
			Activities: repository.NewActivityRepository(db),
			Catalog:    repository.NewCatalogRepository(db),
		}
		checks["postgres"] = db
	}

	// Rate limit counters live in Redis when it is enabled
	var counter middleware.Counter
	if cfg.Redis.Enabled {
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("connected to Redis")
		counter = rdb
		checks["redis"] = rdb
	} else {
		counter = middleware.NewMemoryCounter()
		log.Info().Msg("Redis disabled, rate limits are per process")
	}

	sender, err := email.NewSender(context.Background(), cfg.Email, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize email sender")
	}

	a, err := app.New(cfg, log, app.Options{
		Stores:  stores,
		Counter: counter,
		Sender:  sender,
		Metrics: metrics.New(),
		Checks:  checks,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	a.TwoFactor.Wait()

	log.Info().Msg("server stopped")
}
