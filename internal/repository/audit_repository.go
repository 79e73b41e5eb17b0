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

const auditColumns = `id, campus_id, entity_type, entity_id, action, old_value, new_value, performed_by, created_at`

// AuditRepository appends and reads audit trail rows. Rows are never updated or deleted.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit row; pass the mutation's transaction so both commit together.
func (r *AuditRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (` + auditColumns + `)
VALUES (:id, :campus_id, :entity_type, :entity_id, :action, :old_value, :new_value, :performed_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, pick(r.db, exec), query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns audit rows matching the filter, newest first, with total count.
// A non-positive page size returns every matching row (used by exports).
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CampusID != nil {
		args = append(args, *filter.CampusID)
		conditions = append(conditions, fmt.Sprintf("campus_id = $%d", len(args)))
	}
	if filter.EntityType != nil {
		args = append(args, *filter.EntityType)
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	listQuery := fmt.Sprintf("SELECT %s FROM audit_logs%s ORDER BY created_at DESC", auditColumns, where)
	if filter.PageSize > 0 {
		page := models.NewPagination(filter.Page, filter.PageSize)
		listQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", page.PageSize, page.Offset())
	}

	var items []models.AuditLog
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return items, total, nil
}
