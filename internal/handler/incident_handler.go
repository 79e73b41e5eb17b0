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

type incidentService interface {
	Create(ctx context.Context, req dto.CreateIncidentRequest, principal models.Principal) (*models.Incident, error)
	Get(ctx context.Context, id string, principal models.Principal) (*models.Incident, error)
	List(ctx context.Context, query dto.IncidentQuery, principal models.Principal) ([]models.Incident, *models.Pagination, error)
	Transition(ctx context.Context, id string, req dto.IncidentTransitionRequest, principal models.Principal) (*models.Incident, error)
	Delete(ctx context.Context, id string, principal models.Principal) error
	Restore(ctx context.Context, id string, principal models.Principal) (*models.Incident, error)
}

// IncidentHandler exposes incident reporting and lifecycle endpoints.
type IncidentHandler struct {
	service incidentService
	logger  *zap.Logger
}

// NewIncidentHandler builds a new handler.
func NewIncidentHandler(service incidentService, logger *zap.Logger) *IncidentHandler {
	return &IncidentHandler{service: service, logger: logger}
}

// List godoc
// @Summary List incidents
// @Tags Incidents
// @Produce json
// @Param campusId query string false "Campus filter (global roles only)"
// @Param status query string false "Status filter"
// @Param severity query string false "Severity filter"
// @Param assignedToId query string false "Assignee filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var query dto.IncidentQuery
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
// @Summary Get incident
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
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
// @Summary Report an incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body dto.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.logger, bindErr(err, "invalid incident payload"))
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
// @Summary Change incident status
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param payload body dto.IncidentTransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /incidents/{id}/status [patch]
func (h *IncidentHandler) Transition(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.IncidentTransitionRequest
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
// @Summary Soft delete incident
// @Tags Incidents
// @Param id path string true "Incident ID"
// @Success 204
// @Router /incidents/{id} [delete]
func (h *IncidentHandler) Delete(c *gin.Context) {
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
// @Summary Restore a soft deleted incident
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/restore [post]
func (h *IncidentHandler) Restore(c *gin.Context) {
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
