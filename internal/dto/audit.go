package dto

// AuditLogQuery mirrors supported audit trail filters.
type AuditLogQuery struct {
	CampusID   string `form:"campusId"`
	EntityType string `form:"entityType"`
	EntityID   string `form:"entityId"`
	From       string `form:"from"`
	To         string `form:"to"`
	Format     string `form:"format"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}
