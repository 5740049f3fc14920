package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository"
)

const (
	monitoredActivityLimit = 5
	userActivityLimit      = 50
)

// AdminService backs the admin monitoring dashboard
type AdminService struct {
	users      UserStore
	activities ActivityStore
	catalog    CatalogStore
	activity   activityRecorder
	log        *logger.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(users UserStore, activities ActivityStore, catalog CatalogStore, log *logger.Logger) *AdminService {
	log = log.WithComponent("admin_service")
	return &AdminService{
		users:      users,
		activities: activities,
		catalog:    catalog,
		activity:   activityRecorder{store: activities, log: log},
		log:        log,
	}
}

// CurrentRole returns the role stored for userID
func (s *AdminService) CurrentRole(ctx context.Context, userID int64) (model.Role, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role, nil
}

// ListUsers returns every account, newest first
func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ToggleMonitor flips the monitoring flag on userID, or sets it to
// *monitored when given, and records who did it.
func (s *AdminService) ToggleMonitor(ctx context.Context, adminID, userID int64, monitored *bool) (*model.User, error) {
	var err error
	var now bool
	if monitored != nil {
		now = *monitored
		err = s.users.SetMonitored(ctx, userID, now)
	} else {
		now, err = s.users.ToggleMonitored(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update monitoring: %w", err)
	}

	s.activity.record(ctx, adminID, model.ActivityAdminAction, userID,
		fmt.Sprintf("Set monitoring status to %t", now))

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return user, nil
}

// MonitoredUsers returns monitored accounts with their latest activities
func (s *AdminService) MonitoredUsers(ctx context.Context) ([]model.MonitoredUser, error) {
	users, err := s.users.ListMonitored(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitored users: %w", err)
	}

	out := make([]model.MonitoredUser, 0, len(users))
	for _, u := range users {
		acts, err := s.activities.ListByUser(ctx, u.ID, monitoredActivityLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list activity for user %d: %w", u.ID, err)
		}
		out = append(out, model.MonitoredUser{User: u, Activities: acts})
	}
	return out, nil
}

// UserActivity returns the latest activities of one user
func (s *AdminService) UserActivity(ctx context.Context, userID int64) ([]model.ActivityLog, error) {
	acts, err := s.activities.ListByUser(ctx, userID, userActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return acts, nil
}

// Stats returns the dashboard totals
func (s *AdminService) Stats(ctx context.Context) (*model.AdminStats, error) {
	var stats model.AdminStats
	var err error

	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.TotalAnimals, err = s.catalog.CountAnimals(ctx); err != nil {
		return nil, fmt.Errorf("failed to count animals: %w", err)
	}
	if stats.TotalShelters, err = s.catalog.CountShelters(ctx); err != nil {
		return nil, fmt.Errorf("failed to count shelters: %w", err)
	}
	if stats.TotalActivities, err = s.activities.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}
	if stats.MonitoredUsers, err = s.users.CountMonitored(ctx); err != nil {
		return nil, fmt.Errorf("failed to count monitored users: %w", err)
	}
	return &stats, nil
}

// ForceMonitorCheck runs an on-demand sweep and returns how many users are monitored
func (s *AdminService) ForceMonitorCheck(ctx context.Context) (int64, error) {
	n, err := s.users.CountMonitored(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count monitored users: %w", err)
	}
	s.log.Info().Int64("monitored_users", n).Msg("manual monitoring check")
	return n, nil
}

// SetRoleByEmail promotes or demotes the account with email
func (s *AdminService) SetRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.users.SetRole(ctx, user.ID, role); err != nil {
		return nil, fmt.Errorf("failed to set role: %w", err)
	}
	user.Role = role
	s.log.Info().Int64("user_id", user.ID).Str("role", string(role)).Msg("role changed")
	return user, nil
}
