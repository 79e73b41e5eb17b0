package models

import "time"

// UserRole is the closed set of roles recognised by the scope resolver and lifecycle engines.
type UserRole string

const (
	RoleSuperAdmin   UserRole = "SUPER_ADMIN"
	RoleDeveloper    UserRole = "DEVELOPER"
	RoleAdmin        UserRole = "ADMIN"
	RoleLabAssistant UserRole = "LAB_ASSISTANT"
	RoleLecturer     UserRole = "LECTURER"
	RoleStudent      UserRole = "STUDENT"
)

// AllRoles lists every role in privilege order.
var AllRoles = []UserRole{RoleSuperAdmin, RoleDeveloper, RoleAdmin, RoleLabAssistant, RoleLecturer, RoleStudent}

// IsValid reports whether the role belongs to the enum.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleDeveloper, RoleAdmin, RoleLabAssistant, RoleLecturer, RoleStudent:
		return true
	default:
		return false
	}
}

// BypassesScope reports whether the role ignores campus boundaries.
func (r UserRole) BypassesScope() bool {
	return r == RoleSuperAdmin || r == RoleDeveloper
}

// IsManager reports whether the role may perform administrative lifecycle steps.
func (r UserRole) IsManager() bool {
	return r == RoleAdmin || r.BypassesScope()
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         UserRole   `db:"role" json:"role"`
	CampusID     *string    `db:"campus_id" json:"campusId,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Principal is the authenticated actor an operation runs on behalf of.
type Principal struct {
	ID       string
	Role     UserRole
	CampusID *string
}

// Principal derives the acting principal from a user record.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, CampusID: u.CampusID}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// NewPagination clamps page inputs to sane bounds.
func NewPagination(page, size int) Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return Pagination{Page: page, PageSize: size}
}

// Offset returns the SQL offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
