package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"time"

	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/metrics"
)

// Counter is a fixed-window hit counter. It returns the count after this
// hit and the time left in the window.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Middleware holds all HTTP middleware
type Middleware struct {
	counter Counter
	metrics *metrics.Metrics
	log     *logger.Logger
	cfg     *config.Config
	proxies []netip.Prefix
}

// New creates a new Middleware instance
func New(counter Counter, met *metrics.Metrics, log *logger.Logger, cfg *config.Config) *Middleware {
	m := &Middleware{
		counter: counter,
		metrics: met,
		log:     log,
		cfg:     cfg,
	}
	for _, p := range cfg.Server.TrustedProxies {
		prefix, err := config.ParseProxy(p)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring trusted proxy")
			continue
		}
		m.proxies = append(m.proxies, prefix)
	}
	return m
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
