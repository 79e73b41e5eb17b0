package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lab-api/internal/models"
)

const equipmentColumns = `id, campus_id, lab_id, name, serial_number, status, warranty_end_date, is_deleted, created_at, updated_at`

// EquipmentRepository persists lab equipment.
type EquipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository constructs the repository.
func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// FindByID returns equipment including soft-deleted rows.
func (r *EquipmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Equipment, error) {
	return r.get(ctx, pick(r.db, exec), `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id)
}

// LockByID returns equipment with a row lock held until the transaction ends.
func (r *EquipmentRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Equipment, error) {
	return r.get(ctx, tx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1 FOR UPDATE`, id)
}

func (r *EquipmentRepository) get(ctx context.Context, q sqlx.QueryerContext, query, id string) (*models.Equipment, error) {
	var eq models.Equipment
	if err := sqlx.GetContext(ctx, q, &eq, query, id); err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return &eq, nil
}

// UpdateStatus sets the equipment status.
func (r *EquipmentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.EquipmentStatus, at time.Time) error {
	const query = `UPDATE equipment SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := pick(r.db, exec).ExecContext(ctx, query, id, status, at); err != nil {
		return fmt.Errorf("update equipment status: %w", err)
	}
	return nil
}

// List returns non-deleted equipment matching the filter with total count.
func (r *EquipmentRepository) List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, int, error) {
	conditions := []string{"is_deleted = FALSE"}
	var args []interface{}

	if filter.CampusID != nil {
		args = append(args, *filter.CampusID)
		conditions = append(conditions, fmt.Sprintf("campus_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(COALESCE(serial_number, '')) LIKE $%d)", len(args), len(args)))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	page := models.NewPagination(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM equipment%s ORDER BY name ASC LIMIT %d OFFSET %d", equipmentColumns, where, page.PageSize, page.Offset())

	var items []models.Equipment
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM equipment"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count equipment: %w", err)
	}
	return items, total, nil
}

// ListWarrantyExpiring returns non-deleted equipment whose warranty ends within [from, to].
func (r *EquipmentRepository) ListWarrantyExpiring(ctx context.Context, exec sqlx.ExtContext, campusID *string, from, to time.Time) ([]models.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment
WHERE is_deleted = FALSE AND warranty_end_date IS NOT NULL AND warranty_end_date >= $1 AND warranty_end_date <= $2`
	args := []interface{}{from, to}
	if campusID != nil {
		args = append(args, *campusID)
		query += fmt.Sprintf(" AND campus_id = $%d", len(args))
	}
	query += " ORDER BY warranty_end_date ASC"

	var items []models.Equipment
	if err := sqlx.SelectContext(ctx, pick(r.db, exec), &items, query, args...); err != nil {
		return nil, fmt.Errorf("list expiring warranties: %w", err)
	}
	return items, nil
}
