package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-lab-api/internal/models"
)

const notificationColumns = `id, campus_id, type, entity_id, message, is_read, read_at, created_at, updated_at`

// NotificationRepository persists automation notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// LockType serialises sweeps of one notification type until the transaction ends.
func (r *NotificationRepository) LockType(ctx context.Context, tx sqlx.ExtContext, notificationType models.NotificationType) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "notifications:"+string(notificationType)); err != nil {
		return fmt.Errorf("lock notification type %s: %w", notificationType, err)
	}
	return nil
}

// ExistingUnreadKeys returns the dedup keys among the candidates that already hold an unread row.
func (r *NotificationRepository) ExistingUnreadKeys(ctx context.Context, exec sqlx.ExtContext, notificationType models.NotificationType, candidates []models.NotificationCandidate) ([]models.NotificationKey, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	campusIDs := make([]string, len(candidates))
	entityIDs := make([]string, len(candidates))
	for i, c := range candidates {
		campusIDs[i] = c.CampusID
		entityIDs[i] = c.EntityID
	}

	const query = `SELECT campus_id, entity_id, type FROM notifications
WHERE type = $1 AND is_read = FALSE
AND (campus_id, entity_id) IN (SELECT * FROM unnest($2::text[], $3::text[]))`
	var rows []struct {
		CampusID string                  `db:"campus_id"`
		EntityID string                  `db:"entity_id"`
		Type     models.NotificationType `db:"type"`
	}
	if err := sqlx.SelectContext(ctx, pick(r.db, exec), &rows, query, notificationType, pq.Array(campusIDs), pq.Array(entityIDs)); err != nil {
		return nil, fmt.Errorf("list unread notification keys: %w", err)
	}

	keys := make([]models.NotificationKey, len(rows))
	for i, row := range rows {
		keys[i] = models.NotificationKey{CampusID: row.CampusID, EntityID: row.EntityID, Type: row.Type}
	}
	return keys, nil
}

// InsertUnread inserts n unless its dedup key is already taken; inserted reports which happened.
func (r *NotificationRepository) InsertUnread(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) (inserted bool, err error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.UpdatedAt = n.CreatedAt
	n.IsRead = false

	const query = `INSERT INTO notifications (id, campus_id, type, entity_id, message, is_read, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
ON CONFLICT (campus_id, entity_id, type) WHERE is_read = FALSE DO NOTHING
RETURNING id`
	var id string
	err = sqlx.GetContext(ctx, pick(r.db, exec), &id, query, n.ID, n.CampusID, n.Type, n.EntityID, n.Message, n.CreatedAt, n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return true, nil
}

// FindByID returns a notification.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// MarkRead flips an unread notification to read. Already read rows are left untouched.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = $2, updated_at = $2 WHERE id = $1 AND is_read = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// List returns notifications matching the filter, newest first, with total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CampusID != nil {
		args = append(args, *filter.CampusID)
		conditions = append(conditions, fmt.Sprintf("campus_id = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		conditions = append(conditions, fmt.Sprintf("is_read = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	page := models.NewPagination(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d", notificationColumns, where, page.PageSize, page.Offset())

	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// CountUnread returns the number of unread notifications, optionally for one campus.
func (r *NotificationRepository) CountUnread(ctx context.Context, campusID *string) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE is_read = FALSE`
	var args []interface{}
	if campusID != nil {
		query += ` AND campus_id = $1`
		args = append(args, *campusID)
	}
	var total int64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}
