package handler

import (
	"net/http"

	"github.com/iuliaszarics/WhiskersWonderland/internal/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	res, err := h.authSvc.Register(r.Context(), service.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "registration")
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: res.Token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token             string `json:"token,omitempty"`
	RequiresTwoFactor bool   `json:"requiresTwoFactor,omitempty"`
	TempToken         string `json:"tempToken,omitempty"`
}

// Login checks the password and either issues a session or asks for a code
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	res, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err, "login")
		return
	}

	if res.RequiresTwoFactor {
		writeJSON(w, http.StatusOK, loginResponse{RequiresTwoFactor: true, TempToken: res.TempToken})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token})
}

type verifyLoginRequest struct {
	TempToken string `json:"tempToken"`
	Token     string `json:"token"`
}

// VerifyTwoFactorLogin completes a login for users with two-factor enabled
func (h *Handler) VerifyTwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyLoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	res, err := h.authSvc.VerifyLoginTwoFactor(r.Context(), req.TempToken, req.Token)
	if err != nil {
		h.writeServiceError(w, r, err, "two-factor login")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: res.Token})
}
