package service

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

type equipmentStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Equipment, error)
	LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Equipment, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.EquipmentStatus, at time.Time) error
	List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, int, error)
}

// EquipmentService exposes equipment reads and the audited direct status override.
type EquipmentService struct {
	equipment equipmentStore
	audit     *AuditService
	tx        txRunner
	metrics   transitionMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewEquipmentService constructs the service.
func NewEquipmentService(equipment equipmentStore, audit *AuditService, tx txRunner, metrics transitionMetrics, logger *zap.Logger) *EquipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentService{equipment: equipment, audit: audit, tx: tx, metrics: metrics, logger: logger, now: systemClock}
}

// List returns equipment within the principal's campus scope.
func (s *EquipmentService) List(ctx context.Context, query dto.EquipmentQuery, principal models.Principal) ([]models.Equipment, *models.Pagination, error) {
	campus, err := scopeCampusFilter(principal, query.CampusID)
	if err != nil {
		return nil, nil, err
	}
	filter := models.EquipmentFilter{CampusID: campus, Search: strings.TrimSpace(query.Search)}
	if query.Status != "" {
		status := models.EquipmentStatus(strings.ToUpper(query.Status))
		if !status.IsValid() {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidValue, "unknown equipment status filter")
		}
		filter.Status = &status
	}
	page := models.NewPagination(query.Page, query.PageSize)
	filter.Page, filter.PageSize = page.Page, page.PageSize

	items, total, err := s.equipment.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list equipment", zap.Error(err))
		return nil, nil, appErrors.Internal(err, "failed to list equipment")
	}
	page.TotalCount = total
	return items, &page, nil
}

// Get returns non-deleted equipment visible to the principal.
func (s *EquipmentService) Get(ctx context.Context, id string, principal models.Principal) (*models.Equipment, error) {
	equipment, err := s.equipment.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "equipment not found", "failed to load equipment")
	}
	if equipment.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
	}
	if err := requireAccess(principal, &equipment.CampusID, nil); err != nil {
		return nil, err
	}
	return equipment, nil
}

// UpdateStatus overrides equipment status outside the maintenance workflow.
// Equipment currently in MAINTENANCE can only leave it through the maintenance lifecycle.
func (s *EquipmentService) UpdateStatus(ctx context.Context, id string, req dto.UpdateEquipmentStatusRequest, principal models.Principal) (*models.Equipment, error) {
	target := models.EquipmentStatus(strings.TrimSpace(req.Status))
	if !target.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "unknown equipment status")
	}
	if !principal.Role.IsManager() && principal.Role != models.RoleLabAssistant {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot change equipment status")
	}

	var (
		updated models.Equipment
		from    models.EquipmentStatus
	)
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		current, err := s.equipment.LockByID(ctx, tx, id)
		if err != nil {
			return lookupErr(err, "equipment not found", "failed to load equipment")
		}
		if current.IsDeleted {
			return appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		if err := requireAccess(principal, &current.CampusID, nil); err != nil {
			return err
		}
		if target == models.EquipmentMaintenance {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "equipment enters MAINTENANCE only through a maintenance job")
		}
		if current.Status == models.EquipmentMaintenance {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "equipment is under maintenance")
		}
		from = current.Status
		updated = *current
		return applyEquipmentStatus(ctx, tx, s.equipment, s.audit, &updated, target, principal.ID, s.now())
	})
	if err != nil {
		return nil, passthrough(err, "failed to update equipment status")
	}
	if s.metrics != nil && from != target {
		s.metrics.RecordTransition("equipment", string(from), string(target))
	}
	return &updated, nil
}

// applyEquipmentStatus sets equipment to status inside tx and audits the change when the status moved.
func applyEquipmentStatus(ctx context.Context, tx sqlx.ExtContext, store equipmentStore, audit *AuditService, equipment *models.Equipment, status models.EquipmentStatus, actorID string, at time.Time) error {
	if equipment.Status == status {
		return nil
	}
	before := equipment.AuditSnapshot()
	if err := store.UpdateStatus(ctx, tx, equipment.ID, status, at); err != nil {
		return appErrors.Internal(err, "failed to update equipment status")
	}
	equipment.Status, equipment.UpdatedAt = status, at
	_, err := audit.RecordStatusChange(ctx, tx, StatusChange{
		CampusID:    equipment.CampusID,
		EntityType:  models.AuditEntityEquipment,
		EntityID:    equipment.ID,
		Before:      before,
		After:       equipment.AuditSnapshot(),
		PerformedBy: actorID,
	})
	return err
}
