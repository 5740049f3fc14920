package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iuliaszarics/WhiskersWonderland/internal/database"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
)

const userColumns = `id, username, email, password_hash, role, is_monitored,
	two_factor_secret, two_factor_enabled, created_at, updated_at`

// UserRepository handles user data persistence
type UserRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Postgres) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills in its generated ID and timestamps
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, role, is_monitored)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsMonitored,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by exact email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByEmail checks if a user with the given email exists
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// SetTwoFactorSecret stores a pending secret. The enabled flag is left alone.
func (r *UserRepository) SetTwoFactorSecret(ctx context.Context, id int64, secret string) error {
	query := `UPDATE users SET two_factor_secret = $1, updated_at = NOW() WHERE id = $2`
	return r.execOne(ctx, "set two-factor secret", query, secret, id)
}

// EnableTwoFactor marks secret as verified. It affects no row, and returns
// ErrNotFound, when the stored secret is no longer secret.
func (r *UserRepository) EnableTwoFactor(ctx context.Context, id int64, secret string) error {
	query := `
		UPDATE users SET two_factor_enabled = TRUE, updated_at = NOW()
		WHERE id = $1 AND two_factor_secret = $2
	`
	return r.execOne(ctx, "enable two-factor", query, id, secret)
}

// DisableTwoFactor clears the secret and the enabled flag
func (r *UserRepository) DisableTwoFactor(ctx context.Context, id int64) error {
	query := `
		UPDATE users SET two_factor_secret = NULL, two_factor_enabled = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "disable two-factor", query, id)
}

// SetMonitored updates the admin monitoring flag
func (r *UserRepository) SetMonitored(ctx context.Context, id int64, monitored bool) error {
	query := `UPDATE users SET is_monitored = $1, updated_at = NOW() WHERE id = $2`
	return r.execOne(ctx, "update monitoring flag", query, monitored, id)
}

// ToggleMonitored flips the monitoring flag and returns its new value
func (r *UserRepository) ToggleMonitored(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE users SET is_monitored = NOT is_monitored, updated_at = NOW()
		WHERE id = $1
		RETURNING is_monitored
	`
	var monitored bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&monitored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to toggle monitoring flag: %w", err)
	}
	return monitored, nil
}

// SetRole changes a user's role
func (r *UserRepository) SetRole(ctx context.Context, id int64, role model.Role) error {
	query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`
	return r.execOne(ctx, "update role", query, role, id)
}

// List returns every user, newest first
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`
	return r.queryUsers(ctx, query)
}

// ListMonitored returns users flagged for monitoring, newest first
func (r *UserRepository) ListMonitored(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_monitored ORDER BY created_at DESC, id DESC`
	return r.queryUsers(ctx, query)
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM users`)
}

// CountMonitored returns the number of monitored users
func (r *UserRepository) CountMonitored(ctx context.Context) (int64, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM users WHERE is_monitored`)
}

func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *UserRepository) scanUser(row scanner) (*model.User, error) {
	var user model.User
	var secret sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsMonitored,
		&secret,
		&user.TwoFactorEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if secret.Valid {
		user.TwoFactorSecret = &secret.String
	}
	return &user, nil
}
