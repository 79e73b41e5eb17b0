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

type equipmentService interface {
	List(ctx context.Context, query dto.EquipmentQuery, principal models.Principal) ([]models.Equipment, *models.Pagination, error)
	Get(ctx context.Context, id string, principal models.Principal) (*models.Equipment, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateEquipmentStatusRequest, principal models.Principal) (*models.Equipment, error)
}

// EquipmentHandler exposes equipment endpoints.
type EquipmentHandler struct {
	service equipmentService
	logger  *zap.Logger
}

// NewEquipmentHandler builds a new handler.
func NewEquipmentHandler(service equipmentService, logger *zap.Logger) *EquipmentHandler {
	return &EquipmentHandler{service: service, logger: logger}
}

// List godoc
// @Summary List equipment
// @Tags Equipment
// @Produce json
// @Param campusId query string false "Campus filter (global roles only)"
// @Param status query string false "Status filter"
// @Param search query string false "Name or serial number search"
// @Success 200 {object} response.Envelope
// @Router /equipment [get]
func (h *EquipmentHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var query dto.EquipmentQuery
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

// Get godoc
// @Summary Get equipment
// @Tags Equipment
// @Produce json
// @Param id path string true "Equipment ID"
// @Success 200 {object} response.Envelope
// @Router /equipment/{id} [get]
func (h *EquipmentHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, item)
}

// UpdateStatus godoc
// @Summary Override equipment status
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path string true "Equipment ID"
// @Param payload body dto.UpdateEquipmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /equipment/{id}/status [patch]
func (h *EquipmentHandler) UpdateStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.UpdateEquipmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.logger, bindErr(err, "invalid status payload"))
		return
	}
	item, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, item)
}
