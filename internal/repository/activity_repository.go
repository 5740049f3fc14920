package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iuliaszarics/WhiskersWonderland/internal/database"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
)

// ActivityRepository handles activity log persistence
type ActivityRepository struct {
	db *database.Postgres
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *database.Postgres) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an activity log entry
func (r *ActivityRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (user_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	return nil
}

// ListByUser returns up to limit entries for a user, newest first
func (r *ActivityRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.ActivityLog, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, details, created_at
		FROM activity_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	entries := []model.ActivityLog{}
	for rows.Next() {
		var entry model.ActivityLog
		var uid, eid sql.NullInt64
		if err := rows.Scan(&entry.ID, &uid, &entry.Action, &entry.EntityType, &eid, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		if uid.Valid {
			entry.UserID = &uid.Int64
		}
		if eid.Valid {
			entry.EntityID = &eid.Int64
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity logs: %w", err)
	}
	return entries, nil
}

// Count returns the number of activity log entries
func (r *ActivityRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM activity_logs`)
}
