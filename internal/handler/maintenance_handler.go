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

type maintenanceService interface {
	Create(ctx context.Context, req dto.CreateMaintenanceRequest, principal models.Principal) (*models.Maintenance, error)
	Get(ctx context.Context, id string, principal models.Principal) (*models.Maintenance, error)
	List(ctx context.Context, query dto.MaintenanceQuery, principal models.Principal) ([]models.Maintenance, *models.Pagination, error)
	Transition(ctx context.Context, id string, req dto.MaintenanceTransitionRequest, principal models.Principal) (*models.Maintenance, error)
	Delete(ctx context.Context, id string, principal models.Principal) error
	Restore(ctx context.Context, id string, principal models.Principal) (*models.Maintenance, error)
}

// MaintenanceHandler exposes vendor maintenance endpoints.
type MaintenanceHandler struct {
	service maintenanceService
	logger  *zap.Logger
}

// NewMaintenanceHandler builds a new handler.
func NewMaintenanceHandler(service maintenanceService, logger *zap.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{service: service, logger: logger}
}

// List godoc
// @Summary List maintenance jobs
// @Tags Maintenance
// @Produce json
// @Param campusId query string false "Campus filter (global roles only)"
// @Param status query string false "Status filter"
// @Param equipmentId query string false "Equipment filter"
// @Param incidentId query string false "Incident filter"
// @Success 200 {object} response.Envelope
// @Router /maintenance [get]
func (h *MaintenanceHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var query dto.MaintenanceQuery
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
// @Summary Get maintenance job
// @Tags Maintenance
// @Produce json
// @Param id path string true "Maintenance ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id} [get]
func (h *MaintenanceHandler) Get(c *gin.Context) {
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

// Create godoc
// @Summary Open a maintenance job
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param payload body dto.CreateMaintenanceRequest true "Maintenance payload"
// @Success 201 {object} response.Envelope
// @Router /maintenance [post]
func (h *MaintenanceHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.logger, bindErr(err, "invalid maintenance payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.Created(c, item)
}

// Transition godoc
// @Summary Change maintenance status
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Maintenance ID"
// @Param payload body dto.MaintenanceTransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id}/status [patch]
func (h *MaintenanceHandler) Transition(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.MaintenanceTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.logger, bindErr(err, "invalid transition payload"))
		return
	}
	item, err := h.service.Transition(c.Request.Context(), c.Param("id"), req, p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Soft delete maintenance job
// @Tags Maintenance
// @Param id path string true "Maintenance ID"
// @Success 204
// @Router /maintenance/{id} [delete]
func (h *MaintenanceHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), p); err != nil {
		fail(c, h.logger, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore a soft deleted maintenance job
// @Tags Maintenance
// @Produce json
// @Param id path string true "Maintenance ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id}/restore [post]
func (h *MaintenanceHandler) Restore(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	item, err := h.service.Restore(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, item)
}
