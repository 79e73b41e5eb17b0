package dto

// NotificationQuery mirrors supported listing filters.
type NotificationQuery struct {
	CampusID string `form:"campusId"`
	Type     string `form:"type"`
	Unread   *bool  `form:"unread"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// UnreadCountResponse is served from cache when available.
type UnreadCountResponse struct {
	CampusID *string `json:"campusId,omitempty"`
	Unread   int64   `json:"unread"`
}
