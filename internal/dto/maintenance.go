package dto

import "github.com/shopspring/decimal"

// CreateMaintenanceRequest opens a vendor repair job for an incident.
type CreateMaintenanceRequest struct {
	IncidentID      string  `json:"incidentId" validate:"required"`
	EquipmentID     string  `json:"equipmentId" validate:"required"`
	VendorName      *string `json:"vendorName" validate:"omitempty,max=200"`
	ResolutionNotes *string `json:"resolutionNotes"`
}

// MaintenanceTransitionRequest moves a maintenance job along its lifecycle.
type MaintenanceTransitionRequest struct {
	Status           string           `json:"status"`
	VendorName       *string          `json:"vendorName"`
	EquipmentOutcome *string          `json:"equipmentOutcome"`
	Cost             *decimal.Decimal `json:"cost"`
	ResolutionNotes  *string          `json:"resolutionNotes"`
}

// MaintenanceQuery mirrors supported listing filters.
type MaintenanceQuery struct {
	CampusID    string `form:"campusId"`
	Status      string `form:"status"`
	EquipmentID string `form:"equipmentId"`
	IncidentID  string `form:"incidentId"`
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
}
