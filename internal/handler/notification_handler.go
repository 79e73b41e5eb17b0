package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	"github.com/noah-isme/campus-lab-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, query dto.NotificationQuery, principal models.Principal) ([]models.Notification, *models.Pagination, error)
	UnreadCount(ctx context.Context, campusID string, principal models.Principal) (*dto.UnreadCountResponse, error)
	MarkRead(ctx context.Context, id string, principal models.Principal) (*models.Notification, error)
}

// NotificationHandler exposes notification inbox endpoints.
type NotificationHandler struct {
	service notificationService
	logger  *zap.Logger
}

// NewNotificationHandler builds a new handler.
func NewNotificationHandler(service notificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param campusId query string false "Campus filter (global roles only)"
// @Param type query string false "Notification type"
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var query dto.NotificationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		fail(c, h.logger, bindErr(err, "invalid query parameters"))
		return
	}
	items, page, err := h.service.List(c.Request.Context(), query, p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Param campusId query string false "Campus filter (global roles only)"
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.service.UnreadCount(c.Request.Context(), c.Query("campusId"), p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, res)
}

// MarkRead godoc
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	item, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, item)
}
