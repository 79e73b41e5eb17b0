package dto

import "github.com/noah-isme/campus-lab-api/internal/models"

// CreateIncidentRequest reports a new incident. CampusID is only honoured for roles without a campus.
type CreateIncidentRequest struct {
	CampusID    *string                 `json:"campusId"`
	LabID       *string                 `json:"labId"`
	EquipmentID *string                 `json:"equipmentId"`
	Title       string                  `json:"title" validate:"required,max=200"`
	Description string                  `json:"description" validate:"max=4000"`
	Severity    models.IncidentSeverity `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// IncidentTransitionRequest moves an incident along its lifecycle.
// Status is kept as a raw string so unknown values surface as INVALID_STATUS rather than a decode error.
type IncidentTransitionRequest struct {
	Status           string  `json:"status"`
	AssignedToID     *string `json:"assignedToId"`
	RootCause        *string `json:"rootCause"`
	CorrectiveAction *string `json:"correctiveAction"`
	PreventiveAction *string `json:"preventiveAction"`
}

// IncidentQuery mirrors supported listing filters.
type IncidentQuery struct {
	CampusID     string `form:"campusId"`
	Status       string `form:"status"`
	Severity     string `form:"severity"`
	AssignedToID string `form:"assignedToId"`
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
}
