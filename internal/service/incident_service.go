package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

type incidentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, incident *models.Incident) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Incident, error)
	LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Incident, error)
	UpdateLifecycle(ctx context.Context, exec sqlx.ExtContext, incident *models.Incident) error
	SetDeleted(ctx context.Context, exec sqlx.ExtContext, id string, deleted bool, at time.Time) error
	List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, int, error)
}

type campusLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Campus, error)
}

type equipmentLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Equipment, error)
}

// IncidentService owns the incident lifecycle.
type IncidentService struct {
	incidents incidentStore
	campuses  campusLookup
	equipment equipmentLookup
	audit     *AuditService
	tx        txRunner
	metrics   transitionMetrics
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewIncidentService constructs the service.
func NewIncidentService(incidents incidentStore, campuses campusLookup, equipment equipmentLookup, audit *AuditService, tx txRunner, metrics transitionMetrics, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentService{
		incidents: incidents,
		campuses:  campuses,
		equipment: equipment,
		audit:     audit,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       systemClock,
	}
}

// Create reports a new incident in OPEN.
func (s *IncidentService) Create(ctx context.Context, req dto.CreateIncidentRequest, principal models.Principal) (*models.Incident, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "invalid incident payload")
	}

	campusID := req.CampusID
	if principal.CampusID != nil && !principal.Role.BypassesScope() {
		campusID = principal.CampusID
	}
	if blank(campusID) {
		return nil, appErrors.MissingFields("campusId")
	}
	campus, err := s.campuses.FindByID(ctx, nil, *campusID)
	if err != nil {
		return nil, lookupErr(err, "campus not found", "failed to load campus")
	}
	if campus.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "campus not found")
	}

	if !blank(req.EquipmentID) {
		equipment, err := s.equipment.FindByID(ctx, nil, *req.EquipmentID)
		if err != nil {
			return nil, lookupErr(err, "equipment not found", "failed to load equipment")
		}
		if equipment.IsDeleted {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		if equipment.CampusID != campus.ID {
			return nil, appErrors.Clone(appErrors.ErrCrossCampusReference, "equipment belongs to another campus")
		}
	}
	if err := requireAccess(principal, &campus.ID, nil); err != nil {
		return nil, err
	}

	incident := &models.Incident{
		CampusID:     campus.ID,
		LabID:        req.LabID,
		EquipmentID:  req.EquipmentID,
		Title:        req.Title,
		Description:  strings.TrimSpace(req.Description),
		Severity:     req.Severity,
		Status:       models.IncidentOpen,
		ReportedByID: principal.ID,
		CreatedAt:    s.now(),
	}
	if err := s.incidents.Create(ctx, nil, incident); err != nil {
		s.logger.Error("failed to create incident", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to create incident")
	}
	return incident, nil
}

// Get returns a non-deleted incident visible to the principal.
func (s *IncidentService) Get(ctx context.Context, id string, principal models.Principal) (*models.Incident, error) {
	incident, err := s.incidents.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "incident not found", "failed to load incident")
	}
	if incident.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
	}
	if err := requireAccess(principal, &incident.CampusID, nil); err != nil {
		return nil, err
	}
	return incident, nil
}

// List returns incidents within the principal's campus scope.
func (s *IncidentService) List(ctx context.Context, query dto.IncidentQuery, principal models.Principal) ([]models.Incident, *models.Pagination, error) {
	campus, err := scopeCampusFilter(principal, query.CampusID)
	if err != nil {
		return nil, nil, err
	}
	filter := models.IncidentFilter{CampusID: campus}
	if query.Status != "" {
		status := models.IncidentStatus(strings.ToUpper(query.Status))
		if !status.IsValid() {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidValue, "unknown incident status filter")
		}
		filter.Status = &status
	}
	if query.Severity != "" {
		severity := models.IncidentSeverity(strings.ToUpper(query.Severity))
		if !severity.IsValid() {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidValue, "unknown severity filter")
		}
		filter.Severity = &severity
	}
	if query.AssignedToID != "" {
		filter.AssignedToID = &query.AssignedToID
	}
	page := models.NewPagination(query.Page, query.PageSize)
	filter.Page, filter.PageSize = page.Page, page.PageSize

	items, total, err := s.incidents.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list incidents", zap.Error(err))
		return nil, nil, appErrors.Internal(err, "failed to list incidents")
	}
	page.TotalCount = total
	return items, &page, nil
}

// Transition moves an incident to the requested status and audits the change in the same transaction.
func (s *IncidentService) Transition(ctx context.Context, id string, req dto.IncidentTransitionRequest, principal models.Principal) (*models.Incident, error) {
	target := models.IncidentStatus(strings.TrimSpace(req.Status))
	if !target.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "unknown incident status")
	}

	var (
		updated models.Incident
		from    models.IncidentStatus
	)
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		current, err := s.incidents.LockByID(ctx, tx, id)
		if err != nil {
			return lookupErr(err, "incident not found", "failed to load incident")
		}
		if current.IsDeleted {
			return appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		if err := requireAccess(principal, &current.CampusID, nil); err != nil {
			return err
		}

		from = current.Status
		before := current.AuditSnapshot()
		updated = *current
		if err := s.apply(&updated, target, req, principal); err != nil {
			return err
		}
		updated.UpdatedAt = s.now()

		if err := s.incidents.UpdateLifecycle(ctx, tx, &updated); err != nil {
			return appErrors.Internal(err, "failed to update incident")
		}
		_, err = s.audit.RecordStatusChange(ctx, tx, StatusChange{
			CampusID:    updated.CampusID,
			EntityType:  models.AuditEntityIncident,
			EntityID:    updated.ID,
			Before:      before,
			After:       updated.AuditSnapshot(),
			PerformedBy: principal.ID,
		})
		return err
	})
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrInternal.Code {
			s.logger.Error("incident transition failed", zap.String("incident_id", id), zap.Error(err))
		}
		return nil, passthrough(err, "failed to transition incident")
	}

	if s.metrics != nil {
		s.metrics.RecordTransition("incident", string(from), string(target))
	}
	s.logger.Info("incident transitioned",
		zap.String("incident_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("user_id", principal.ID),
	)
	return &updated, nil
}

// apply enforces the edge rules for target and mutates incident in place.
func (s *IncidentService) apply(incident *models.Incident, target models.IncidentStatus, req dto.IncidentTransitionRequest, principal models.Principal) error {
	switch target {
	case models.IncidentAssigned:
		if !principal.Role.IsManager() {
			return appErrors.Clone(appErrors.ErrForbidden, "only administrators can assign incidents")
		}
		if incident.Status != models.IncidentOpen {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "incident must be OPEN to be assigned")
		}
		if blank(req.AssignedToID) {
			return appErrors.MissingFields("assignedToId")
		}
		incident.AssignedToID = mergeText(req.AssignedToID, nil)

	case models.IncidentInProgress:
		if incident.Status != models.IncidentAssigned {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "incident must be ASSIGNED to start work")
		}
		if !principal.Role.BypassesScope() && (incident.AssignedToID == nil || *incident.AssignedToID != principal.ID) {
			return appErrors.Clone(appErrors.ErrForbidden, "only the assignee can start work")
		}

	case models.IncidentResolved:
		if incident.Status != models.IncidentInProgress {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "incident must be IN_PROGRESS to be resolved")
		}
		rootCause := mergeText(req.RootCause, incident.RootCause)
		corrective := mergeText(req.CorrectiveAction, incident.CorrectiveAction)
		preventive := mergeText(req.PreventiveAction, incident.PreventiveAction)
		var missing []string
		if blank(rootCause) {
			missing = append(missing, "rootCause")
		}
		if blank(corrective) {
			missing = append(missing, "correctiveAction")
		}
		if blank(preventive) {
			missing = append(missing, "preventiveAction")
		}
		if len(missing) > 0 {
			return appErrors.MissingFields(missing...)
		}
		now := s.now()
		incident.RootCause, incident.CorrectiveAction, incident.PreventiveAction = rootCause, corrective, preventive
		incident.ResolvedAt = &now

	case models.IncidentVerified:
		if !principal.Role.IsManager() {
			return appErrors.Clone(appErrors.ErrForbidden, "only administrators can verify incidents")
		}
		if incident.Status != models.IncidentResolved {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "incident must be RESOLVED to be verified")
		}
		now := s.now()
		incident.VerifiedAt = &now

	case models.IncidentClosed:
		if incident.Status != models.IncidentVerified {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "incident must be VERIFIED to be closed")
		}

	case models.IncidentOpen:
		return appErrors.Clone(appErrors.ErrInvalidTransition, "incidents cannot return to OPEN")

	default:
		return appErrors.Clone(appErrors.ErrInvalidStatus, "unknown incident status")
	}

	incident.Status = target
	return nil
}

// Delete soft-deletes an incident.
func (s *IncidentService) Delete(ctx context.Context, id string, principal models.Principal) error {
	_, err := s.setDeleted(ctx, id, true, principal)
	return err
}

// Restore reverses a soft delete.
func (s *IncidentService) Restore(ctx context.Context, id string, principal models.Principal) (*models.Incident, error) {
	return s.setDeleted(ctx, id, false, principal)
}

func (s *IncidentService) setDeleted(ctx context.Context, id string, deleted bool, principal models.Principal) (*models.Incident, error) {
	if !principal.Role.IsManager() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can delete or restore incidents")
	}
	incident, err := s.incidents.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "incident not found", "failed to load incident")
	}
	if deleted && incident.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
	}
	if err := requireAccess(principal, &incident.CampusID, nil); err != nil {
		return nil, err
	}
	if incident.IsDeleted == deleted {
		return incident, nil
	}
	now := s.now()
	if err := s.incidents.SetDeleted(ctx, nil, id, deleted, now); err != nil {
		s.logger.Error("failed to toggle incident deletion", zap.String("incident_id", id), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to update incident")
	}
	incident.IsDeleted, incident.UpdatedAt = deleted, now
	return incident, nil
}
