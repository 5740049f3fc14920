// Package memory is a process-local store with the same contracts as the
// Postgres repositories. It backs the "memory" database driver and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository"
)

// Store holds users, activity logs and catalog counts
type Store struct {
	mu         sync.RWMutex
	users      map[int64]*model.User
	byEmail    map[string]int64
	activities []model.ActivityLog
	nextUserID int64
	nextLogID  int64
	animals    int64
	shelters   int64
	now        func() time.Time
}

// New returns an empty Store
func New() *Store {
	return &Store{
		users:   make(map[int64]*model.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

// HealthCheck always succeeds
func (s *Store) HealthCheck(ctx context.Context) error {
	return nil
}

// Users returns the user store view
func (s *Store) Users() *Users { return &Users{s} }

// Activities returns the activity store view
func (s *Store) Activities() *Activities { return &Activities{s} }

// Catalog returns the catalog view
func (s *Store) Catalog() *Catalog { return &Catalog{s} }

// SetCatalogCounts sets the animal and shelter totals
func (s *Store) SetCatalogCounts(animals, shelters int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animals, s.shelters = animals, shelters
}

// Users implements the user store contract
type Users struct{ s *Store }

// Create inserts user and assigns ID and timestamps
func (u *Users) Create(ctx context.Context, user *model.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	s.nextUserID++
	now := s.now()
	user.ID = s.nextUserID
	user.CreatedAt, user.UpdatedAt = now, now

	stored := cloneUser(user)
	s.users[user.ID] = stored
	s.byEmail[user.Email] = user.ID
	return nil
}

// GetByID returns a copy of the user
func (u *Users) GetByID(ctx context.Context, id int64) (*model.User, error) {
	s := u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

// GetByEmail returns a copy of the user with this exact email
func (u *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s := u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

// ExistsByEmail checks if a user with the given email exists
func (u *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	_, ok := u.s.byEmail[email]
	return ok, nil
}

// SetTwoFactorSecret stores a pending secret
func (u *Users) SetTwoFactorSecret(ctx context.Context, id int64, secret string) error {
	return u.update(id, func(user *model.User) bool {
		user.TwoFactorSecret = &secret
		return true
	})
}

// EnableTwoFactor marks secret as verified if it is still the stored one
func (u *Users) EnableTwoFactor(ctx context.Context, id int64, secret string) error {
	return u.update(id, func(user *model.User) bool {
		if !user.HasTwoFactorSecret() || *user.TwoFactorSecret != secret {
			return false
		}
		user.TwoFactorEnabled = true
		return true
	})
}

// DisableTwoFactor clears the secret and the enabled flag
func (u *Users) DisableTwoFactor(ctx context.Context, id int64) error {
	return u.update(id, func(user *model.User) bool {
		user.TwoFactorSecret = nil
		user.TwoFactorEnabled = false
		return true
	})
}

// SetMonitored updates the monitoring flag
func (u *Users) SetMonitored(ctx context.Context, id int64, monitored bool) error {
	return u.update(id, func(user *model.User) bool {
		user.IsMonitored = monitored
		return true
	})
}

// ToggleMonitored flips the monitoring flag and returns its new value
func (u *Users) ToggleMonitored(ctx context.Context, id int64) (bool, error) {
	var monitored bool
	err := u.update(id, func(user *model.User) bool {
		user.IsMonitored = !user.IsMonitored
		monitored = user.IsMonitored
		return true
	})
	return monitored, err
}

// SetRole changes a user's role
func (u *Users) SetRole(ctx context.Context, id int64, role model.Role) error {
	return u.update(id, func(user *model.User) bool {
		user.Role = role
		return true
	})
}

// List returns every user, newest first
func (u *Users) List(ctx context.Context) ([]model.User, error) {
	return u.filter(func(*model.User) bool { return true }), nil
}

// ListMonitored returns monitored users, newest first
func (u *Users) ListMonitored(ctx context.Context) ([]model.User, error) {
	return u.filter(func(user *model.User) bool { return user.IsMonitored }), nil
}

// Count returns the number of users
func (u *Users) Count(ctx context.Context) (int64, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	return int64(len(u.s.users)), nil
}

// CountMonitored returns the number of monitored users
func (u *Users) CountMonitored(ctx context.Context) (int64, error) {
	return int64(len(u.filter(func(user *model.User) bool { return user.IsMonitored }))), nil
}

func (u *Users) update(id int64, fn func(*model.User) bool) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || !fn(user) {
		return repository.ErrNotFound
	}
	user.UpdatedAt = s.now()
	return nil
}

func (u *Users) filter(keep func(*model.User) bool) []model.User {
	s := u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.User{}
	for _, user := range s.users {
		if keep(user) {
			out = append(out, *cloneUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func cloneUser(user *model.User) *model.User {
	c := *user
	if user.TwoFactorSecret != nil {
		secret := *user.TwoFactorSecret
		c.TwoFactorSecret = &secret
	}
	return &c
}

// Activities implements the activity store contract
type Activities struct{ s *Store }

// Create appends entry and assigns ID and timestamp
func (a *Activities) Create(ctx context.Context, entry *model.ActivityLog) error {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLogID++
	entry.ID = s.nextLogID
	entry.CreatedAt = s.now()
	s.activities = append(s.activities, *entry)
	return nil
}

// ListByUser returns up to limit entries for userID, newest first
func (a *Activities) ListByUser(ctx context.Context, userID int64, limit int) ([]model.ActivityLog, error) {
	s := a.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.ActivityLog{}
	for i := len(s.activities) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.activities[i]
		if entry.UserID != nil && *entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Count returns the number of entries
func (a *Activities) Count(ctx context.Context) (int64, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return int64(len(a.s.activities)), nil
}

// Catalog implements the catalog counts contract
type Catalog struct{ s *Store }

// CountAnimals returns the configured animal total
func (c *Catalog) CountAnimals(ctx context.Context) (int64, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.s.animals, nil
}

// CountShelters returns the configured shelter total
func (c *Catalog) CountShelters(ctx context.Context) (int64, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.s.shelters, nil
}
