package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lab-api/internal/models"
	"github.com/noah-isme/campus-lab-api/internal/service"
	"github.com/noah-isme/campus-lab-api/pkg/config"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
	"github.com/noah-isme/campus-lab-api/pkg/logger"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Wrap(errors.New("bad signature"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	return s.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(logger.UserIDKey)})
	})
	r.GET("/protected", handlers...)
	return r
}

func serve(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	r := newRouter(JWT(stubValidator{claims: claims}))

	assert.Equal(t, http.StatusUnauthorized, serve(r, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, map[string]string{"Authorization": "Basic abc"}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, map[string]string{"Authorization": "Bearer bad"}).Code)

	rec := serve(r, map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"u1"}`, rec.Body.String())
}

func TestRequireRoles(t *testing.T) {
	withRole := func(role models.UserRole) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role})
		}
	}

	for _, role := range models.AllRoles {
		rec := serve(newRouter(withRole(role), RequireRoles(LabStaffRoles...)), nil)
		switch role {
		case models.RoleLecturer, models.RoleStudent:
			assert.Equal(t, http.StatusForbidden, rec.Code, role)
		default:
			assert.Equal(t, http.StatusOK, rec.Code, role)
		}
	}

	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(RequireRoles(ManagerRoles...)), nil).Code)
}

func TestAutomationSecret(t *testing.T) {
	r := newRouter(AutomationSecret(config.AutomationConfig{Secret: "s3cret", SecretHeader: "X-Automation-Secret"}))

	assert.Equal(t, http.StatusUnauthorized, serve(r, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, map[string]string{"X-Automation-Secret": "nope"}).Code)
	assert.Equal(t, http.StatusOK, serve(r, map[string]string{"X-Automation-Secret": "s3cret"}).Code)

	unset := newRouter(AutomationSecret(config.AutomationConfig{}))
	assert.Equal(t, http.StatusUnauthorized, serve(unset, map[string]string{"X-Automation-Secret": ""}).Code)
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics))

	assert.Equal(t, http.StatusOK, serve(r, nil).Code)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "path" && lp.GetValue() == "/protected" {
					found = true
				}
			}
		}
	}
	assert.True(t, found)
}
