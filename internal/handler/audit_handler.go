package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	"github.com/noah-isme/campus-lab-api/internal/service"
	"github.com/noah-isme/campus-lab-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, principal models.Principal, query dto.AuditLogQuery) ([]models.AuditLog, *models.Pagination, error)
	Export(ctx context.Context, principal models.Principal, query dto.AuditLogQuery) (*service.ExportFile, error)
}

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	service auditService
	logger  *zap.Logger
}

// NewAuditHandler builds a new handler.
func NewAuditHandler(service auditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: service, logger: logger}
}

// List godoc
// @Summary List audit trail entries
// @Tags Audit
// @Produce json
// @Param campusId query string false "Campus filter (global roles only)"
// @Param entityType query string false "INCIDENT, MAINTENANCE or EQUIPMENT"
// @Param entityId query string false "Entity ID"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var query dto.AuditLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		fail(c, h.logger, bindErr(err, "invalid query parameters"))
		return
	}
	items, page, err := h.service.List(c.Request.Context(), p, query)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Export godoc
// @Summary Export audit trail
// @Tags Audit
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /audit-logs/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var query dto.AuditLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		fail(c, h.logger, bindErr(err, "invalid query parameters"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), p, query)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
