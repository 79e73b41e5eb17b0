package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

type maintenanceStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, m *models.Maintenance) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Maintenance, error)
	LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Maintenance, error)
	UpdateLifecycle(ctx context.Context, exec sqlx.ExtContext, m *models.Maintenance) error
	SetDeleted(ctx context.Context, exec sqlx.ExtContext, id string, deleted bool, at time.Time) error
	List(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, int, error)
}

type incidentLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Incident, error)
}

// MaintenanceService owns the vendor maintenance lifecycle and its equipment side effects.
type MaintenanceService struct {
	maintenance maintenanceStore
	incidents   incidentLookup
	equipment   equipmentStore
	audit       *AuditService
	tx          txRunner
	metrics     transitionMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewMaintenanceService constructs the service.
func NewMaintenanceService(maintenance maintenanceStore, incidents incidentLookup, equipment equipmentStore, audit *AuditService, tx txRunner, metrics transitionMetrics, validate *validator.Validate, logger *zap.Logger) *MaintenanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		maintenance: maintenance,
		incidents:   incidents,
		equipment:   equipment,
		audit:       audit,
		tx:          tx,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         systemClock,
	}
}

// Create opens a PENDING maintenance job. The campus is taken from the equipment.
func (s *MaintenanceService) Create(ctx context.Context, req dto.CreateMaintenanceRequest, principal models.Principal) (*models.Maintenance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "invalid maintenance payload")
	}

	equipment, err := s.equipment.FindByID(ctx, nil, req.EquipmentID)
	if err != nil {
		return nil, lookupErr(err, "equipment not found", "failed to load equipment")
	}
	if equipment.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
	}
	incident, err := s.incidents.FindByID(ctx, nil, req.IncidentID)
	if err != nil {
		return nil, lookupErr(err, "incident not found", "failed to load incident")
	}
	if incident.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
	}
	if equipment.CampusID != incident.CampusID {
		return nil, appErrors.Clone(appErrors.ErrCrossCampusReference, "equipment and incident belong to different campuses")
	}
	if err := requireAccess(principal, &equipment.CampusID, nil); err != nil {
		return nil, err
	}

	m := &models.Maintenance{
		CampusID:        equipment.CampusID,
		IncidentID:      incident.ID,
		EquipmentID:     equipment.ID,
		Status:          models.MaintenancePending,
		VendorName:      mergeText(req.VendorName, nil),
		ResolutionNotes: mergeText(req.ResolutionNotes, nil),
		CreatedByID:     principal.ID,
		CreatedAt:       s.now(),
	}
	if err := s.maintenance.Create(ctx, nil, m); err != nil {
		s.logger.Error("failed to create maintenance", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to create maintenance")
	}
	return m, nil
}

// Get returns a non-deleted maintenance job visible to the principal.
func (s *MaintenanceService) Get(ctx context.Context, id string, principal models.Principal) (*models.Maintenance, error) {
	m, err := s.maintenance.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "maintenance not found", "failed to load maintenance")
	}
	if m.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance not found")
	}
	if err := requireAccess(principal, &m.CampusID, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns maintenance jobs within the principal's campus scope.
func (s *MaintenanceService) List(ctx context.Context, query dto.MaintenanceQuery, principal models.Principal) ([]models.Maintenance, *models.Pagination, error) {
	campus, err := scopeCampusFilter(principal, query.CampusID)
	if err != nil {
		return nil, nil, err
	}
	filter := models.MaintenanceFilter{CampusID: campus}
	if query.Status != "" {
		status := models.MaintenanceStatus(strings.ToUpper(query.Status))
		if !status.IsValid() {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidValue, "unknown maintenance status filter")
		}
		filter.Status = &status
	}
	if query.EquipmentID != "" {
		filter.EquipmentID = &query.EquipmentID
	}
	if query.IncidentID != "" {
		filter.IncidentID = &query.IncidentID
	}
	page := models.NewPagination(query.Page, query.PageSize)
	filter.Page, filter.PageSize = page.Page, page.PageSize

	items, total, err := s.maintenance.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list maintenance", zap.Error(err))
		return nil, nil, appErrors.Internal(err, "failed to list maintenance")
	}
	page.TotalCount = total
	return items, &page, nil
}

// Transition advances a maintenance job, applying the equipment side effect and every audit row in one transaction.
func (s *MaintenanceService) Transition(ctx context.Context, id string, req dto.MaintenanceTransitionRequest, principal models.Principal) (*models.Maintenance, error) {
	target := models.MaintenanceStatus(strings.TrimSpace(req.Status))
	if !target.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "unknown maintenance status")
	}

	var (
		updated models.Maintenance
		from    models.MaintenanceStatus
	)
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		current, err := s.maintenance.LockByID(ctx, tx, id)
		if err != nil {
			return lookupErr(err, "maintenance not found", "failed to load maintenance")
		}
		if current.IsDeleted {
			return appErrors.Clone(appErrors.ErrNotFound, "maintenance not found")
		}
		if err := requireAccess(principal, &current.CampusID, nil); err != nil {
			return err
		}

		from = current.Status
		before := current.AuditSnapshot()
		updated = *current
		equipmentStatus, err := s.apply(&updated, target, req, principal)
		if err != nil {
			return err
		}
		updated.UpdatedAt = s.now()

		if err := s.maintenance.UpdateLifecycle(ctx, tx, &updated); err != nil {
			return appErrors.Internal(err, "failed to update maintenance")
		}
		if _, err := s.audit.RecordStatusChange(ctx, tx, StatusChange{
			CampusID:    updated.CampusID,
			EntityType:  models.AuditEntityMaintenance,
			EntityID:    updated.ID,
			Before:      before,
			After:       updated.AuditSnapshot(),
			PerformedBy: principal.ID,
		}); err != nil {
			return err
		}

		if equipmentStatus == "" {
			return nil
		}
		equipment, err := s.equipment.LockByID(ctx, tx, updated.EquipmentID)
		if err != nil {
			return lookupErr(err, "equipment not found", "failed to load equipment")
		}
		if equipment.IsDeleted {
			return appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return applyEquipmentStatus(ctx, tx, s.equipment, s.audit, equipment, equipmentStatus, principal.ID, updated.UpdatedAt)
	})
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrInternal.Code {
			s.logger.Error("maintenance transition failed", zap.String("maintenance_id", id), zap.Error(err))
		}
		return nil, passthrough(err, "failed to transition maintenance")
	}

	if s.metrics != nil {
		s.metrics.RecordTransition("maintenance", string(from), string(target))
	}
	s.logger.Info("maintenance transitioned",
		zap.String("maintenance_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("user_id", principal.ID),
	)
	return &updated, nil
}

// apply enforces the edge rules for target, mutates m in place and returns the equipment status to set, if any.
func (s *MaintenanceService) apply(m *models.Maintenance, target models.MaintenanceStatus, req dto.MaintenanceTransitionRequest, principal models.Principal) (models.EquipmentStatus, error) {
	if target == models.MaintenancePending {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition, "maintenance cannot return to PENDING")
	}
	if !principal.Role.IsManager() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "only administrators can advance maintenance")
	}

	var equipmentStatus models.EquipmentStatus
	now := s.now()
	switch target {
	case models.MaintenanceSent:
		if m.Status != models.MaintenancePending {
			return "", appErrors.Clone(appErrors.ErrInvalidTransition, "maintenance must be PENDING to be sent")
		}
		vendor := mergeText(req.VendorName, m.VendorName)
		if blank(vendor) {
			return "", appErrors.MissingFields("vendorName")
		}
		m.VendorName = vendor
		m.SentToVendorAt = &now
		equipmentStatus = models.EquipmentMaintenance

	case models.MaintenanceReturned:
		if m.Status != models.MaintenanceSent {
			return "", appErrors.Clone(appErrors.ErrInvalidTransition, "maintenance must be SENT to be returned")
		}
		if blank(req.EquipmentOutcome) {
			return "", appErrors.MissingFields("equipmentOutcome")
		}
		outcome := models.EquipmentStatus(strings.ToUpper(strings.TrimSpace(*req.EquipmentOutcome)))
		if outcome != models.EquipmentActive && outcome != models.EquipmentDamaged {
			return "", appErrors.Clone(appErrors.ErrInvalidValue, "equipmentOutcome must be ACTIVE or DAMAGED")
		}
		if req.Cost != nil {
			if req.Cost.IsNegative() {
				return "", appErrors.Clone(appErrors.ErrInvalidValue, "cost cannot be negative")
			}
			m.Cost = decimal.NewNullDecimal(*req.Cost)
		}
		m.ResolutionNotes = mergeText(req.ResolutionNotes, m.ResolutionNotes)
		m.ReturnedFromVendorAt = &now
		equipmentStatus = outcome

	case models.MaintenanceCompleted:
		if m.Status != models.MaintenanceReturned {
			return "", appErrors.Clone(appErrors.ErrInvalidTransition, "maintenance must be RETURNED to be completed")
		}
		m.CompletedDate = &now

	default:
		return "", appErrors.Clone(appErrors.ErrInvalidStatus, "unknown maintenance status")
	}

	m.Status = target
	return equipmentStatus, nil
}

// Delete soft-deletes a maintenance job.
func (s *MaintenanceService) Delete(ctx context.Context, id string, principal models.Principal) error {
	_, err := s.setDeleted(ctx, id, true, principal)
	return err
}

// Restore reverses a soft delete.
func (s *MaintenanceService) Restore(ctx context.Context, id string, principal models.Principal) (*models.Maintenance, error) {
	return s.setDeleted(ctx, id, false, principal)
}

func (s *MaintenanceService) setDeleted(ctx context.Context, id string, deleted bool, principal models.Principal) (*models.Maintenance, error) {
	if !principal.Role.IsManager() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can delete or restore maintenance")
	}
	m, err := s.maintenance.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "maintenance not found", "failed to load maintenance")
	}
	if deleted && m.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance not found")
	}
	if err := requireAccess(principal, &m.CampusID, nil); err != nil {
		return nil, err
	}
	if m.IsDeleted == deleted {
		return m, nil
	}
	now := s.now()
	if err := s.maintenance.SetDeleted(ctx, nil, id, deleted, now); err != nil {
		s.logger.Error("failed to toggle maintenance deletion", zap.String("maintenance_id", id), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to update maintenance")
	}
	m.IsDeleted, m.UpdatedAt = deleted, now
	return m, nil
}
