package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lab-api/internal/models"
)

// CampusRepository reads tenant records.
type CampusRepository struct {
	db *sqlx.DB
}

// NewCampusRepository constructs the repository.
func NewCampusRepository(db *sqlx.DB) *CampusRepository {
	return &CampusRepository{db: db}
}

// FindByID returns a campus including soft-deleted ones; callers decide visibility.
func (r *CampusRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Campus, error) {
	const query = `SELECT id, code, name, is_deleted, created_at FROM campuses WHERE id = $1`
	var campus models.Campus
	if err := sqlx.GetContext(ctx, pick(r.db, exec), &campus, query, id); err != nil {
		return nil, fmt.Errorf("find campus: %w", err)
	}
	return &campus, nil
}

// ListActiveIDs returns every non-deleted campus id; the sweep CLI fans out over these.
func (r *CampusRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM campuses WHERE is_deleted = FALSE ORDER BY code ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list campuses: %w", err)
	}
	return ids, nil
}
