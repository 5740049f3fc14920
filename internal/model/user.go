package model

import "time"

// Role is the authorization level of a user
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Role             Role      `json:"role"`
	IsMonitored      bool      `json:"isMonitored"`
	TwoFactorSecret  *string   `json:"-"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasTwoFactorSecret reports whether a pending or active TOTP secret is stored
func (u *User) HasTwoFactorSecret() bool {
	return u.TwoFactorSecret != nil && *u.TwoFactorSecret != ""
}

