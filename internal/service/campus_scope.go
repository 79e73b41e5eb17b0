package service

import (
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

// AccessDecision is the outcome of a scope check.
type AccessDecision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) AccessDecision { return AccessDecision{Allowed: true, Reason: reason} }
func deny(reason string) AccessDecision  { return AccessDecision{Allowed: false, Reason: reason} }

// CheckAccess decides whether principal may act on a resource in resourceCampusID owned by resourceOwnerID.
// It is pure; callers supply whatever campus and owner the resource carries.
func CheckAccess(p models.Principal, resourceCampusID, resourceOwnerID *string) AccessDecision {
	switch p.Role {
	case models.RoleSuperAdmin, models.RoleDeveloper:
		return allow("global role")
	case models.RoleAdmin:
		if resourceCampusID == nil {
			return allow("resource has no campus")
		}
		if p.CampusID != nil && *p.CampusID == *resourceCampusID {
			return allow("same campus")
		}
		return deny("resource belongs to another campus")
	case models.RoleLabAssistant, models.RoleLecturer, models.RoleStudent:
		if resourceOwnerID != nil {
			if *resourceOwnerID == p.ID {
				return allow("resource owner")
			}
			return deny("resource owned by another user")
		}
		if resourceCampusID == nil || p.CampusID == nil {
			return deny("campus unknown")
		}
		if *p.CampusID == *resourceCampusID {
			return allow("same campus")
		}
		return deny("resource belongs to another campus")
	default:
		return deny("unknown role")
	}
}

// requireAccess converts a denied decision into ACCESS_DENIED.
func requireAccess(p models.Principal, resourceCampusID, resourceOwnerID *string) error {
	if d := CheckAccess(p, resourceCampusID, resourceOwnerID); !d.Allowed {
		return appErrors.Clone(appErrors.ErrAccessDenied, d.Reason)
	}
	return nil
}

// scopeCampusFilter resolves which campus a listing may cover.
// Global roles may pick any campus or none (all); everyone else is pinned to their own campus.
func scopeCampusFilter(p models.Principal, requested string) (*string, error) {
	if p.Role.BypassesScope() {
		if requested == "" {
			return nil, nil
		}
		return &requested, nil
	}
	if !p.Role.IsValid() || p.CampusID == nil {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "principal has no campus")
	}
	if requested != "" && requested != *p.CampusID {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "resource belongs to another campus")
	}
	campus := *p.CampusID
	return &campus, nil
}
