package repository

import (
	"context"

	"github.com/iuliaszarics/WhiskersWonderland/internal/database"
)

// CatalogRepository reads aggregate figures from the animal and shelter tables
type CatalogRepository struct {
	db *database.Postgres
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *database.Postgres) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CountAnimals returns the number of animals
func (r *CatalogRepository) CountAnimals(ctx context.Context) (int64, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM animals`)
}

// CountShelters returns the number of shelters
func (r *CatalogRepository) CountShelters(ctx context.Context) (int64, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM shelters`)
}
