package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/iuliaszarics/WhiskersWonderland/internal/database"
)

// Common repository errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// isUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func count(ctx context.Context, db *database.Postgres, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}
