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

const incidentColumns = `id, campus_id, lab_id, equipment_id, title, description, severity, status, reported_by_id, assigned_to_id,
root_cause, corrective_action, preventive_action, resolved_at, verified_at, is_deleted, created_at, updated_at`

// IncidentRepository persists incidents.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs the repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create inserts a new incident.
func (r *IncidentRepository) Create(ctx context.Context, exec sqlx.ExtContext, incident *models.Incident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = now
	}
	incident.UpdatedAt = incident.CreatedAt

	const query = `INSERT INTO incidents (id, campus_id, lab_id, equipment_id, title, description, severity, status, reported_by_id, created_at, updated_at)
VALUES (:id, :campus_id, :lab_id, :equipment_id, :title, :description, :severity, :status, :reported_by_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, pick(r.db, exec), query, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// FindByID returns an incident including soft-deleted rows.
func (r *IncidentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Incident, error) {
	return r.get(ctx, pick(r.db, exec), `SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id)
}

// LockByID returns an incident with a row lock held until the transaction ends.
func (r *IncidentRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Incident, error) {
	return r.get(ctx, tx, `SELECT `+incidentColumns+` FROM incidents WHERE id = $1 FOR UPDATE`, id)
}

func (r *IncidentRepository) get(ctx context.Context, q sqlx.QueryerContext, query, id string) (*models.Incident, error) {
	var incident models.Incident
	if err := sqlx.GetContext(ctx, q, &incident, query, id); err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &incident, nil
}

// UpdateLifecycle persists the lifecycle owned columns.
func (r *IncidentRepository) UpdateLifecycle(ctx context.Context, exec sqlx.ExtContext, incident *models.Incident) error {
	const query = `UPDATE incidents SET status = :status, assigned_to_id = :assigned_to_id, root_cause = :root_cause,
corrective_action = :corrective_action, preventive_action = :preventive_action, resolved_at = :resolved_at,
verified_at = :verified_at, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, pick(r.db, exec), query, incident); err != nil {
		return fmt.Errorf("update incident lifecycle: %w", err)
	}
	return nil
}

// SetDeleted toggles the soft-delete flag.
func (r *IncidentRepository) SetDeleted(ctx context.Context, exec sqlx.ExtContext, id string, deleted bool, at time.Time) error {
	const query = `UPDATE incidents SET is_deleted = $2, updated_at = $3 WHERE id = $1`
	if _, err := pick(r.db, exec).ExecContext(ctx, query, id, deleted, at); err != nil {
		return fmt.Errorf("set incident deleted: %w", err)
	}
	return nil
}

// List returns incidents matching the filter with total count.
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, int, error) {
	var conditions []string
	var args []interface{}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "is_deleted = FALSE")
	}
	if filter.CampusID != nil {
		args = append(args, *filter.CampusID)
		conditions = append(conditions, fmt.Sprintf("campus_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Severity != nil {
		args = append(args, *filter.Severity)
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		conditions = append(conditions, fmt.Sprintf("assigned_to_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	page := models.NewPagination(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM incidents%s ORDER BY created_at DESC LIMIT %d OFFSET %d", incidentColumns, where, page.PageSize, page.Offset())

	var items []models.Incident
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM incidents"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}
	return items, total, nil
}

// ListEscalationCandidates returns open high-severity incidents reported at or before the cutoff.
func (r *IncidentRepository) ListEscalationCandidates(ctx context.Context, exec sqlx.ExtContext, campusID *string, createdBefore time.Time) ([]models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents
WHERE is_deleted = FALSE AND severity IN ('HIGH', 'CRITICAL') AND status IN ('OPEN', 'ASSIGNED', 'IN_PROGRESS') AND created_at <= $1`
	args := []interface{}{createdBefore}
	if campusID != nil {
		args = append(args, *campusID)
		query += fmt.Sprintf(" AND campus_id = $%d", len(args))
	}
	query += " ORDER BY created_at ASC"

	var items []models.Incident
	if err := sqlx.SelectContext(ctx, pick(r.db, exec), &items, query, args...); err != nil {
		return nil, fmt.Errorf("list escalation candidates: %w", err)
	}
	return items, nil
}
