package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lab-api/internal/models"
)

const maintenanceColumns = `id, campus_id, incident_id, equipment_id, status, vendor_name, cost, resolution_notes, sent_to_vendor_at,
returned_from_vendor_at, completed_date, created_by_id, is_deleted, created_at, updated_at`

// MaintenanceRepository persists vendor maintenance jobs.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs the repository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Create inserts a new maintenance job.
func (r *MaintenanceRepository) Create(ctx context.Context, exec sqlx.ExtContext, m *models.Maintenance) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = m.CreatedAt

	const query = `INSERT INTO maintenance (id, campus_id, incident_id, equipment_id, status, vendor_name, cost, resolution_notes, created_by_id, created_at, updated_at)
VALUES (:id, :campus_id, :incident_id, :equipment_id, :status, :vendor_name, :cost, :resolution_notes, :created_by_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, pick(r.db, exec), query, m); err != nil {
		return fmt.Errorf("create maintenance: %w", err)
	}
	return nil
}

// FindByID returns a maintenance job including soft-deleted rows.
func (r *MaintenanceRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Maintenance, error) {
	return r.get(ctx, pick(r.db, exec), `SELECT `+maintenanceColumns+` FROM maintenance WHERE id = $1`, id)
}

// LockByID returns a maintenance job with a row lock held until the transaction ends.
func (r *MaintenanceRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Maintenance, error) {
	return r.get(ctx, tx, `SELECT `+maintenanceColumns+` FROM maintenance WHERE id = $1 FOR UPDATE`, id)
}

func (r *MaintenanceRepository) get(ctx context.Context, q sqlx.QueryerContext, query, id string) (*models.Maintenance, error) {
	var m models.Maintenance
	if err := sqlx.GetContext(ctx, q, &m, query, id); err != nil {
		return nil, fmt.Errorf("get maintenance: %w", err)
	}
	return &m, nil
}

// UpdateLifecycle persists the lifecycle owned columns.
func (r *MaintenanceRepository) UpdateLifecycle(ctx context.Context, exec sqlx.ExtContext, m *models.Maintenance) error {
	const query = `UPDATE maintenance SET status = :status, vendor_name = :vendor_name, cost = :cost, resolution_notes = :resolution_notes,
sent_to_vendor_at = :sent_to_vendor_at, returned_from_vendor_at = :returned_from_vendor_at, completed_date = :completed_date,
updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, pick(r.db, exec), query, m); err != nil {
		return fmt.Errorf("update maintenance lifecycle: %w", err)
	}
	return nil
}

// SetDeleted toggles the soft-delete flag.
func (r *MaintenanceRepository) SetDeleted(ctx context.Context, exec sqlx.ExtContext, id string, deleted bool, at time.Time) error {
	const query = `UPDATE maintenance SET is_deleted = $2, updated_at = $3 WHERE id = $1`
	if _, err := pick(r.db, exec).ExecContext(ctx, query, id, deleted, at); err != nil {
		return fmt.Errorf("set maintenance deleted: %w", err)
	}
	return nil
}

// List returns non-deleted maintenance jobs matching the filter with total count.
func (r *MaintenanceRepository) List(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, int, error) {
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
	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		conditions = append(conditions, fmt.Sprintf("equipment_id = $%d", len(args)))
	}
	if filter.IncidentID != nil {
		args = append(args, *filter.IncidentID)
		conditions = append(conditions, fmt.Sprintf("incident_id = $%d", len(args)))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	page := models.NewPagination(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM maintenance%s ORDER BY created_at DESC LIMIT %d OFFSET %d", maintenanceColumns, where, page.PageSize, page.Offset())

	var items []models.Maintenance
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list maintenance: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM maintenance"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count maintenance: %w", err)
	}
	return items, total, nil
}

// ListOverdue returns non-deleted jobs still at the vendor that were sent at or before the cutoff.
func (r *MaintenanceRepository) ListOverdue(ctx context.Context, exec sqlx.ExtContext, campusID *string, sentBefore time.Time) ([]models.Maintenance, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance
WHERE is_deleted = FALSE AND status = 'SENT' AND sent_to_vendor_at IS NOT NULL AND sent_to_vendor_at <= $1`
	args := []interface{}{sentBefore}
	if campusID != nil {
		args = append(args, *campusID)
		query += fmt.Sprintf(" AND campus_id = $%d", len(args))
	}
	query += " ORDER BY sent_to_vendor_at ASC"

	var items []models.Maintenance
	if err := sqlx.SelectContext(ctx, pick(r.db, exec), &items, query, args...); err != nil {
		return nil, fmt.Errorf("list overdue maintenance: %w", err)
	}
	return items, nil
}
