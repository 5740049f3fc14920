package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/iuliaszarics/WhiskersWonderland/internal/middleware"
)

// AdminListUsers returns every account
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminSvc.ListUsers(r.Context())
	if err != nil {
		h.internalError(w, r, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type toggleMonitorRequest struct {
	IsMonitored *bool `json:"isMonitored"`
}

// AdminToggleMonitor flips the monitoring flag on a user. An optional
// isMonitored body sets it explicitly.
func (h *Handler) AdminToggleMonitor(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req toggleMonitorRequest
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	admin := middleware.ClaimsFrom(r.Context())
	user, err := h.adminSvc.ToggleMonitor(r.Context(), admin.UserID, userID, req.IsMonitored)
	if err != nil {
		h.writeServiceError(w, r, err, "toggle monitoring")
		return
	}

	message := "Monitoring disabled"
	if user.IsMonitored {
		message = "Monitoring enabled"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"user":    user,
	})
}

// AdminMonitoredUsers returns monitored users with their recent activity
func (h *Handler) AdminMonitoredUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminSvc.MonitoredUsers(r.Context())
	if err != nil {
		h.internalError(w, r, err, "list monitored users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// AdminUserActivity returns the latest activity of one user
func (h *Handler) AdminUserActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	acts, err := h.adminSvc.UserActivity(r.Context(), userID)
	if err != nil {
		h.internalError(w, r, err, "list user activity")
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

// AdminStats returns dashboard totals
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminSvc.Stats(r.Context())
	if err != nil {
		h.internalError(w, r, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AdminForceMonitorCheck runs a monitoring sweep on demand
func (h *Handler) AdminForceMonitorCheck(w http.ResponseWriter, r *http.Request) {
	n, err := h.adminSvc.ForceMonitorCheck(r.Context())
	if err != nil {
		h.internalError(w, r, err, "monitor check")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Monitoring check completed",
		"monitoredUsers": n,
	})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid user id")
		return 0, false
	}
	return id, true
}
