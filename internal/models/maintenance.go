package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaintenanceStatus is a node of the vendor maintenance lifecycle.
type MaintenanceStatus string

const (
	MaintenancePending   MaintenanceStatus = "PENDING"
	MaintenanceSent      MaintenanceStatus = "SENT"
	MaintenanceReturned  MaintenanceStatus = "RETURNED"
	MaintenanceCompleted MaintenanceStatus = "COMPLETED"
)

// MaintenanceStatuses lists the lifecycle in order.
var MaintenanceStatuses = []MaintenanceStatus{
	MaintenancePending, MaintenanceSent, MaintenanceReturned, MaintenanceCompleted,
}

// IsValid reports whether the status belongs to the enum.
func (s MaintenanceStatus) IsValid() bool {
	for _, st := range MaintenanceStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Maintenance is a vendor repair job raised from an incident against a piece of equipment.
type Maintenance struct {
	ID                   string              `db:"id" json:"id"`
	CampusID             string              `db:"campus_id" json:"campusId"`
	IncidentID           string              `db:"incident_id" json:"incidentId"`
	EquipmentID          string              `db:"equipment_id" json:"equipmentId"`
	Status               MaintenanceStatus   `db:"status" json:"status"`
	VendorName           *string             `db:"vendor_name" json:"vendorName,omitempty"`
	Cost                 decimal.NullDecimal `db:"cost" json:"cost"`
	ResolutionNotes      *string             `db:"resolution_notes" json:"resolutionNotes,omitempty"`
	SentToVendorAt       *time.Time          `db:"sent_to_vendor_at" json:"sentToVendorAt,omitempty"`
	ReturnedFromVendorAt *time.Time          `db:"returned_from_vendor_at" json:"returnedFromVendorAt,omitempty"`
	CompletedDate        *time.Time          `db:"completed_date" json:"completedDate,omitempty"`
	CreatedByID          string              `db:"created_by_id" json:"createdById"`
	IsDeleted            bool                `db:"is_deleted" json:"-"`
	CreatedAt            time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time           `db:"updated_at" json:"updatedAt"`
}

// AuditSnapshot captures the fields recorded on maintenance status changes.
func (m *Maintenance) AuditSnapshot() Snapshot {
	var cost interface{}
	if m.Cost.Valid {
		cost = m.Cost.Decimal.String()
	}
	return Snapshot{
		"status":          string(m.Status),
		"vendorName":      optional(m.VendorName),
		"cost":            cost,
		"resolutionNotes": optional(m.ResolutionNotes),
	}
}

// MaintenanceFilter narrows maintenance listings.
type MaintenanceFilter struct {
	CampusID    *string
	Status      *MaintenanceStatus
	EquipmentID *string
	IncidentID  *string
	Page        int
	PageSize    int
}
