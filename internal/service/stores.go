package service

import (
	"context"

	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
)

// UserStore is the credential store. Implementations return
// repository.ErrNotFound and repository.ErrDuplicate.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	SetTwoFactorSecret(ctx context.Context, id int64, secret string) error
	EnableTwoFactor(ctx context.Context, id int64, secret string) error
	DisableTwoFactor(ctx context.Context, id int64) error
	SetMonitored(ctx context.Context, id int64, monitored bool) error
	ToggleMonitored(ctx context.Context, id int64) (bool, error)
	SetRole(ctx context.Context, id int64, role model.Role) error
	List(ctx context.Context) ([]model.User, error)
	ListMonitored(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	CountMonitored(ctx context.Context) (int64, error)
}

// ActivityStore appends and reads activity logs
type ActivityStore interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.ActivityLog, error)
	Count(ctx context.Context) (int64, error)
}

// CatalogStore reads animal and shelter totals
type CatalogStore interface {
	CountAnimals(ctx context.Context) (int64, error)
	CountShelters(ctx context.Context) (int64, error)
}
