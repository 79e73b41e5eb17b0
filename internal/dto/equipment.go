package dto

// UpdateEquipmentStatusRequest is the direct status override outside the maintenance workflow.
type UpdateEquipmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// EquipmentQuery mirrors supported listing filters.
type EquipmentQuery struct {
	CampusID string `form:"campusId"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
