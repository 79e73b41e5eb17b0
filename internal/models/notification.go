package models

import (
	"fmt"
	"time"
)

// NotificationType enumerates automation generated alerts.
type NotificationType string

const (
	NotificationWarrantyAlert      NotificationType = "WARRANTY_ALERT"
	NotificationIncidentEscalation NotificationType = "INCIDENT_ESCALATION"
	NotificationMaintenanceOverdue NotificationType = "MAINTENANCE_OVERDUE"
)

// IsValid reports whether the type belongs to the enum.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationWarrantyAlert, NotificationIncidentEscalation, NotificationMaintenanceOverdue:
		return true
	}
	return false
}

// Notification is an in-app alert; at most one unread row exists per dedup key.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	CampusID  string           `db:"campus_id" json:"campusId"`
	Type      NotificationType `db:"type" json:"type"`
	EntityID  string           `db:"entity_id" json:"entityId"`
	Message   string           `db:"message" json:"message"`
	IsRead    bool             `db:"is_read" json:"isRead"`
	ReadAt    *time.Time       `db:"read_at" json:"readAt,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// DedupKey identifies the unread slot a notification occupies.
func (n *Notification) DedupKey() NotificationKey {
	return NotificationKey{CampusID: n.CampusID, EntityID: n.EntityID, Type: n.Type}
}

// NotificationKey is the (campus, entity, type) dedup tuple.
type NotificationKey struct {
	CampusID string
	EntityID string
	Type     NotificationType
}

func (k NotificationKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.CampusID, k.Type, k.EntityID)
}

// NotificationCandidate is a sweep result awaiting dedup.
type NotificationCandidate struct {
	CampusID string
	EntityID string
	Message  string
}

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	CampusID *string
	Type     *NotificationType
	IsRead   *bool
	Page     int
	PageSize int
}
