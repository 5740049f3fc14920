package handler

import (
	"net/http"

	"github.com/iuliaszarics/WhiskersWonderland/internal/middleware"
)

type codeRequest struct {
	Token string `json:"token"`
}

// SetupTwoFactor starts enrollment and returns the secret and QR code
func (h *Handler) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	setup, err := h.twoFactorSvc.BeginEnrollment(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, r, err, "two-factor setup")
		return
	}

	writeJSON(w, http.StatusOK, setup)
}

// VerifyTwoFactor confirms enrollment with a code from the new secret
func (h *Handler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req codeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Token is required")
		return
	}

	if err := h.twoFactorSvc.ConfirmEnrollment(r.Context(), claims.UserID, req.Token); err != nil {
		h.writeServiceError(w, r, err, "two-factor verification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TwoFactorStatus reports whether two-factor authentication is enabled
func (h *Handler) TwoFactorStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	enabled, err := h.twoFactorSvc.Status(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, r, err, "two-factor status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// DisableTwoFactor turns two-factor authentication off after checking a code
func (h *Handler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req codeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Token is required")
		return
	}

	if err := h.twoFactorSvc.DisableEnrollment(r.Context(), claims.UserID, req.Token); err != nil {
		h.writeServiceError(w, r, err, "two-factor disable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Two-factor authentication disabled"})
}
