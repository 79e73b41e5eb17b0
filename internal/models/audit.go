package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEntityType names the aggregate an audit row describes.
type AuditEntityType string

const (
	AuditEntityEquipment   AuditEntityType = "EQUIPMENT"
	AuditEntityIncident    AuditEntityType = "INCIDENT"
	AuditEntityMaintenance AuditEntityType = "MAINTENANCE"
)

// AuditActionStatusChange is the only action currently recorded.
const AuditActionStatusChange = "STATUS_CHANGE"

// Snapshot is an opaque structured before/after value stored as JSONB.
type Snapshot map[string]interface{}

// Value marshals the snapshot to JSON for persistence.
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(map[string]interface{}(s))
	if err != nil {
		return nil, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the snapshot.
func (s *Snapshot) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported audit snapshot type %T", value)
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal audit snapshot: %w", err)
	}
	*s = out
	return nil
}

// Status returns the recorded status, if any.
func (s Snapshot) Status() string {
	v, _ := s["status"].(string)
	return v
}

// AuditLog is an append-only record of an observed state transition.
type AuditLog struct {
	ID          string          `db:"id" json:"id"`
	CampusID    string          `db:"campus_id" json:"campusId"`
	EntityType  AuditEntityType `db:"entity_type" json:"entityType"`
	EntityID    string          `db:"entity_id" json:"entityId"`
	Action      string          `db:"action" json:"action"`
	OldValue    Snapshot        `db:"old_value" json:"oldValue"`
	NewValue    Snapshot        `db:"new_value" json:"newValue"`
	PerformedBy string          `db:"performed_by" json:"performedBy"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// AuditLogFilter narrows audit trail queries.
type AuditLogFilter struct {
	CampusID   *string
	EntityType *AuditEntityType
	EntityID   *string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

func optional(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
