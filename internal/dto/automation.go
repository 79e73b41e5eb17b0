package dto

import "github.com/noah-isme/campus-lab-api/internal/models"

// SweepResult reports what one automation sweep produced.
type SweepResult struct {
	Type       models.NotificationType `json:"type"`
	CampusID   *string                 `json:"campusId,omitempty"`
	Candidates int                     `json:"candidates"`
	Created    []models.Notification   `json:"created"`
}
