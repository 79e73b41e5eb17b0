package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lab-api/pkg/config"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
	"github.com/noah-isme/campus-lab-api/pkg/response"
)

// AutomationSecret guards scheduler-only endpoints with a shared secret header.
// An empty configured secret rejects every call.
func AutomationSecret(cfg config.AutomationConfig) gin.HandlerFunc {
	header := cfg.SecretHeader
	if header == "" {
		header = "X-Automation-Secret"
	}
	expected := []byte(cfg.Secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(header))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid automation secret"))
			return
		}
		c.Next()
	}
}
