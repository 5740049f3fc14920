package whiskers

import "time"

// User is an account as returned by the admin API.
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	IsMonitored      bool      `json:"isMonitored"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Activity is one entry of a user's activity log.
type Activity struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"userId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   *int64    `json:"entityId"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MonitoredUser is a monitored account with its latest activities.
type MonitoredUser struct {
	User
	Activities []Activity `json:"activities"`
}

// Stats are the admin dashboard totals.
type Stats struct {
	TotalUsers      int64 `json:"totalUsers"`
	TotalAnimals    int64 `json:"totalAnimals"`
	TotalShelters   int64 `json:"totalShelters"`
	TotalActivities int64 `json:"totalActivities"`
	MonitoredUsers  int64 `json:"monitoredUsers"`
}

// RegisterRequest contains the data for creating a new account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is either a session token or a two-factor challenge.
type LoginResult struct {
	Token             string `json:"token,omitempty"`
	RequiresTwoFactor bool   `json:"requiresTwoFactor,omitempty"`
	TempToken         string `json:"tempToken,omitempty"`
}

// TwoFactorSetup carries a new TOTP secret and its QR code data URI.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qrCode"`
}

type tokenResponse struct {
	Token string `json:"token"`
}
