package models

import "time"

// IncidentSeverity grades incident impact.
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "LOW"
	SeverityMedium   IncidentSeverity = "MEDIUM"
	SeverityHigh     IncidentSeverity = "HIGH"
	SeverityCritical IncidentSeverity = "CRITICAL"
)

// IsValid reports whether the severity belongs to the enum.
func (s IncidentSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IncidentStatus is a node of the incident lifecycle.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "OPEN"
	IncidentAssigned   IncidentStatus = "ASSIGNED"
	IncidentInProgress IncidentStatus = "IN_PROGRESS"
	IncidentResolved   IncidentStatus = "RESOLVED"
	IncidentVerified   IncidentStatus = "VERIFIED"
	IncidentClosed     IncidentStatus = "CLOSED"
)

// IncidentStatuses lists the lifecycle in order.
var IncidentStatuses = []IncidentStatus{
	IncidentOpen, IncidentAssigned, IncidentInProgress, IncidentResolved, IncidentVerified, IncidentClosed,
}

// IsValid reports whether the status belongs to the enum.
func (s IncidentStatus) IsValid() bool {
	for _, st := range IncidentStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Incident is a reported lab problem tracked through the ISO corrective action workflow.
type Incident struct {
	ID               string           `db:"id" json:"id"`
	CampusID         string           `db:"campus_id" json:"campusId"`
	LabID            *string          `db:"lab_id" json:"labId,omitempty"`
	EquipmentID      *string          `db:"equipment_id" json:"equipmentId,omitempty"`
	Title            string           `db:"title" json:"title"`
	Description      string           `db:"description" json:"description"`
	Severity         IncidentSeverity `db:"severity" json:"severity"`
	Status           IncidentStatus   `db:"status" json:"status"`
	ReportedByID     string           `db:"reported_by_id" json:"reportedById"`
	AssignedToID     *string          `db:"assigned_to_id" json:"assignedToId,omitempty"`
	RootCause        *string          `db:"root_cause" json:"rootCause,omitempty"`
	CorrectiveAction *string          `db:"corrective_action" json:"correctiveAction,omitempty"`
	PreventiveAction *string          `db:"preventive_action" json:"preventiveAction,omitempty"`
	ResolvedAt       *time.Time       `db:"resolved_at" json:"resolvedAt,omitempty"`
	VerifiedAt       *time.Time       `db:"verified_at" json:"verifiedAt,omitempty"`
	IsDeleted        bool             `db:"is_deleted" json:"-"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`
}

// AuditSnapshot captures the fields recorded on incident status changes.
func (i *Incident) AuditSnapshot() Snapshot {
	return Snapshot{
		"status":           string(i.Status),
		"assignedToId":     optional(i.AssignedToID),
		"rootCause":        optional(i.RootCause),
		"correctiveAction": optional(i.CorrectiveAction),
		"preventiveAction": optional(i.PreventiveAction),
	}
}

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	CampusID       *string
	Status         *IncidentStatus
	Severity       *IncidentSeverity
	AssignedToID   *string
	IncludeDeleted bool
	Page           int
	PageSize       int
}
