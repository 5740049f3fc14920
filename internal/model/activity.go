package model

import "time"

// ActivityLog is an immutable audit row
type ActivityLog struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"userId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   *int64    `json:"entityId"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Activity actions
const (
	ActivityRegister          = "register"
	ActivityLogin             = "login"
	ActivityTwoFactorEnabled  = "two_factor_enabled"
	ActivityTwoFactorDisabled = "two_factor_disabled"
	ActivityAdminAction       = "admin_action"
)

// EntityUser is the entity type for activities about user records
const EntityUser = "user"

// MonitoredUser is a monitored account with its most recent activities
type MonitoredUser struct {
	User
	Activities []ActivityLog `json:"activities"`
}

// AdminStats are the dashboard totals
type AdminStats struct {
	TotalUsers      int64 `json:"totalUsers"`
	TotalAnimals    int64 `json:"totalAnimals"`
	TotalShelters   int64 `json:"totalShelters"`
	TotalActivities int64 `json:"totalActivities"`
	MonitoredUsers  int64 `json:"monitoredUsers"`
}
