package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	"github.com/noah-isme/campus-lab-api/pkg/response"
)

type automationService interface {
	Run(ctx context.Context, notificationType models.NotificationType, campusID *string) (*dto.SweepResult, error)
}

// AutomationHandler exposes the scheduler-triggered sweeps.
type AutomationHandler struct {
	service automationService
	logger  *zap.Logger
}

// NewAutomationHandler builds a new handler.
func NewAutomationHandler(service automationService, logger *zap.Logger) *AutomationHandler {
	return &AutomationHandler{service: service, logger: logger}
}

// WarrantyCheck godoc
// @Summary Run the warranty expiry sweep
// @Tags Automation
// @Produce json
// @Param campusId query string false "Restrict to one campus"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /automation/warranty-check [post]
func (h *AutomationHandler) WarrantyCheck(c *gin.Context) {
	h.run(c, models.NotificationWarrantyAlert)
}

// IncidentEscalation godoc
// @Summary Run the incident escalation sweep
// @Tags Automation
// @Produce json
// @Param campusId query string false "Restrict to one campus"
// @Success 200 {object} response.Envelope
// @Router /automation/incident-escalation [post]
func (h *AutomationHandler) IncidentEscalation(c *gin.Context) {
	h.run(c, models.NotificationIncidentEscalation)
}

// MaintenanceOverdue godoc
// @Summary Run the overdue maintenance sweep
// @Tags Automation
// @Produce json
// @Param campusId query string false "Restrict to one campus"
// @Success 200 {object} response.Envelope
// @Router /automation/maintenance-overdue [post]
func (h *AutomationHandler) MaintenanceOverdue(c *gin.Context) {
	h.run(c, models.NotificationMaintenanceOverdue)
}

func (h *AutomationHandler) run(c *gin.Context, notificationType models.NotificationType) {
	res, err := h.service.Run(c.Request.Context(), notificationType, optionalQuery(c, "campusId"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, res)
}
