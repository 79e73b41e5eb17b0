package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
	"github.com/noah-isme/campus-lab-api/pkg/response"
)

// RequireRoles only lets callers holding one of roles through.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role is not allowed to access this resource"))
			return
		}
		c.Next()
	}
}

// ManagerRoles are the roles allowed to administer any lifecycle.
var ManagerRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleDeveloper, models.RoleAdmin}

// LabStaffRoles adds lab assistants to the manager roles.
var LabStaffRoles = append(append([]models.UserRole{}, ManagerRoles...), models.RoleLabAssistant)
