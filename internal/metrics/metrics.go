package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes
const (
	LoginSuccess           = "success"
	LoginTwoFactorRequired = "two_factor_required"
	LoginInvalid           = "invalid_credentials"
)

// Two-factor events
const (
	TwoFactorSetup         = "setup"
	TwoFactorEnabled       = "enabled"
	TwoFactorDisabled      = "disabled"
	TwoFactorLoginVerified = "login_verified"
	TwoFactorInvalidCode   = "invalid_code"
)

// Metrics owns a private registry so tests can create as many as they need.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	loginAttempts   *prometheus.CounterVec
	twoFactorEvents *prometheus.CounterVec
	registrations   prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whiskers",
			Name:      "login_attempts_total",
			Help:      "Password login attempts by outcome.",
		}, []string{"result"}),
		twoFactorEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whiskers",
			Name:      "two_factor_events_total",
			Help:      "Two-factor enrollment and verification events.",
		}, []string{"event"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "whiskers",
			Name:      "registrations_total",
			Help:      "Accounts created.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whiskers",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whiskers",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.loginAttempts,
		m.twoFactorEvents,
		m.registrations,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTwoFactor(event string) {
	if m == nil {
		return
	}
	m.twoFactorEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
