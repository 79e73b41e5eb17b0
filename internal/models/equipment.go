package models

import "time"

// EquipmentStatus enumerates equipment availability.
type EquipmentStatus string

const (
	EquipmentActive      EquipmentStatus = "ACTIVE"
	EquipmentDamaged     EquipmentStatus = "DAMAGED"
	EquipmentMaintenance EquipmentStatus = "MAINTENANCE"
	EquipmentRetired     EquipmentStatus = "RETIRED"
)

// IsValid reports whether the status belongs to the enum.
func (s EquipmentStatus) IsValid() bool {
	switch s {
	case EquipmentActive, EquipmentDamaged, EquipmentMaintenance, EquipmentRetired:
		return true
	}
	return false
}

// Equipment is a tracked lab asset.
type Equipment struct {
	ID              string          `db:"id" json:"id"`
	CampusID        string          `db:"campus_id" json:"campusId"`
	LabID           *string         `db:"lab_id" json:"labId,omitempty"`
	Name            string          `db:"name" json:"name"`
	SerialNumber    *string         `db:"serial_number" json:"serialNumber,omitempty"`
	Status          EquipmentStatus `db:"status" json:"status"`
	WarrantyEndDate *time.Time      `db:"warranty_end_date" json:"warrantyEndDate,omitempty"`
	IsDeleted       bool            `db:"is_deleted" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// AuditSnapshot captures the fields recorded on equipment status changes.
func (e *Equipment) AuditSnapshot() Snapshot {
	return Snapshot{"status": string(e.Status)}
}

// EquipmentFilter narrows equipment listings.
type EquipmentFilter struct {
	CampusID *string
	Status   *EquipmentStatus
	Search   string
	Page     int
	PageSize int
}
