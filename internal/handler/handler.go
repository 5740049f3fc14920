package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/middleware"
	"github.com/iuliaszarics/WhiskersWonderland/internal/service"
)

// HealthChecker is a dependency reported by /health and /ready
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds all HTTP handlers
type Handler struct {
	log          *logger.Logger
	cfg          *config.Config
	authSvc      *service.AuthService
	twoFactorSvc *service.TwoFactorService
	adminSvc     *service.AdminService
	checks       map[string]HealthChecker
}

// New creates a new Handler instance
func New(log *logger.Logger, cfg *config.Config, authSvc *service.AuthService, twoFactorSvc *service.TwoFactorService, adminSvc *service.AdminService, checks map[string]HealthChecker) *Handler {
	return &Handler{
		log:          log.WithComponent("handler"),
		cfg:          cfg,
		authSvc:      authSvc,
		twoFactorSvc: twoFactorSvc,
		adminSvc:     adminSvc,
		checks:       checks,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// writeServiceError maps service sentinels to status codes. Anything
// unrecognised is a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "email_exists", "An account with this email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid_token", "The temporary token is invalid or expired")
	case errors.Is(err, service.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "invalid_code", "The verification code is incorrect")
	case errors.Is(err, service.ErrNotSetUp):
		writeError(w, http.StatusBadRequest, "two_factor_not_set_up", "Two-factor authentication has not been set up")
	case errors.Is(err, service.ErrTwoFactorNotEnabled):
		writeError(w, http.StatusBadRequest, "two_factor_not_enabled", "Two-factor authentication is not enabled")
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		writeError(w, http.StatusBadRequest, "two_factor_already_enabled", "Two-factor authentication is already enabled")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "User not found")
	default:
		h.internalError(w, r, err, op)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, op string) {
	h.log.WithRequestID(middleware.GetRequestID(r.Context())).
		Error().Err(err).Msg(op + " failed")

	resp := errorResponse{Error: "internal_error", Message: "An unexpected error occurred"}
	if !h.cfg.IsProduction() {
		resp.Detail = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// NotFound answers unmatched routes
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "Route not found")
}
