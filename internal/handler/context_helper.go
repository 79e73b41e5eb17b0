package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/middleware"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
	"github.com/noah-isme/campus-lab-api/pkg/logger"
	"github.com/noah-isme/campus-lab-api/pkg/response"
)

// principal resolves the acting principal from JWT claims, writing 401 when absent.
func principal(c *gin.Context) (models.Principal, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Principal{}, false
	}
	return claims.Principal(), true
}

// fail writes err to the client and logs server-side failures with their cause.
func fail(c *gin.Context, log *zap.Logger, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.FromContext(c, log).Error("request failed",
			zap.String("code", appErr.Code),
			zap.String("message", appErr.Message),
			zap.Error(appErr.Err),
		)
	}
	response.Error(c, appErr)
}

func bindErr(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, msg)
}

func optionalQuery(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}
