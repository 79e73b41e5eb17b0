package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
	"github.com/noah-isme/campus-lab-api/pkg/jobs"
)

// Sweep thresholds.
const (
	WarrantyWindow      = 30 * 24 * time.Hour
	EscalationThreshold = 72 * time.Hour
	OverdueThreshold    = 7 * 24 * time.Hour
)

type notificationWriter interface {
	LockType(ctx context.Context, tx sqlx.ExtContext, notificationType models.NotificationType) error
	ExistingUnreadKeys(ctx context.Context, exec sqlx.ExtContext, notificationType models.NotificationType, candidates []models.NotificationCandidate) ([]models.NotificationKey, error)
	InsertUnread(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) (bool, error)
}

type warrantySource interface {
	ListWarrantyExpiring(ctx context.Context, exec sqlx.ExtContext, campusID *string, from, to time.Time) ([]models.Equipment, error)
}

type escalationSource interface {
	ListEscalationCandidates(ctx context.Context, exec sqlx.ExtContext, campusID *string, createdBefore time.Time) ([]models.Incident, error)
}

type overdueSource interface {
	ListOverdue(ctx context.Context, exec sqlx.ExtContext, campusID *string, sentBefore time.Time) ([]models.Maintenance, error)
}

type jobEnqueuer interface {
	EnqueueAsync(batch ...jobs.Job) error
}

// AutomationService runs the scheduled sweeps that raise deduplicated notifications.
type AutomationService struct {
	notifications notificationWriter
	equipment     warrantySource
	incidents     escalationSource
	maintenance   overdueSource
	campuses      campusLookup
	tx            txRunner
	queue         jobEnqueuer
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

// AutomationDeps groups the collaborators of AutomationService.
type AutomationDeps struct {
	Notifications notificationWriter
	Equipment     warrantySource
	Incidents     escalationSource
	Maintenance   overdueSource
	Campuses      campusLookup
	Tx            txRunner
	Queue         jobEnqueuer
	Cache         *CacheService
	Metrics       *MetricsService
	Logger        *zap.Logger
}

// NewAutomationService constructs the service. A nil queue skips post-commit dispatch.
func NewAutomationService(deps AutomationDeps) *AutomationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationService{
		notifications: deps.Notifications,
		equipment:     deps.Equipment,
		incidents:     deps.Incidents,
		maintenance:   deps.Maintenance,
		campuses:      deps.Campuses,
		tx:            deps.Tx,
		queue:         deps.Queue,
		cache:         deps.Cache,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           systemClock,
	}
}

// WarrantyCheck alerts on equipment whose warranty ends within WarrantyWindow.
func (s *AutomationService) WarrantyCheck(ctx context.Context, campusID *string) (*dto.SweepResult, error) {
	return s.sweep(ctx, models.NotificationWarrantyAlert, campusID, func(tx sqlx.ExtContext, now time.Time) ([]models.NotificationCandidate, error) {
		items, err := s.equipment.ListWarrantyExpiring(ctx, tx, campusID, now, now.Add(WarrantyWindow))
		if err != nil {
			return nil, err
		}
		candidates := make([]models.NotificationCandidate, 0, len(items))
		for _, e := range items {
			days := int(e.WarrantyEndDate.Sub(now).Hours() / 24)
			candidates = append(candidates, models.NotificationCandidate{
				CampusID: e.CampusID,
				EntityID: e.ID,
				Message:  fmt.Sprintf("Warranty for %s expires on %s (%d days left)", e.Name, e.WarrantyEndDate.Format("2006-01-02"), days),
			})
		}
		return candidates, nil
	})
}

// IncidentEscalation alerts on HIGH and CRITICAL incidents left unresolved past EscalationThreshold.
func (s *AutomationService) IncidentEscalation(ctx context.Context, campusID *string) (*dto.SweepResult, error) {
	return s.sweep(ctx, models.NotificationIncidentEscalation, campusID, func(tx sqlx.ExtContext, now time.Time) ([]models.NotificationCandidate, error) {
		items, err := s.incidents.ListEscalationCandidates(ctx, tx, campusID, now.Add(-EscalationThreshold))
		if err != nil {
			return nil, err
		}
		candidates := make([]models.NotificationCandidate, 0, len(items))
		for _, inc := range items {
			hours := int(now.Sub(inc.CreatedAt).Hours())
			candidates = append(candidates, models.NotificationCandidate{
				CampusID: inc.CampusID,
				EntityID: inc.ID,
				Message:  fmt.Sprintf("%s incident %q has been %s for %d hours", inc.Severity, inc.Title, inc.Status, hours),
			})
		}
		return candidates, nil
	})
}

// MaintenanceOverdue alerts on maintenance jobs at a vendor longer than OverdueThreshold.
func (s *AutomationService) MaintenanceOverdue(ctx context.Context, campusID *string) (*dto.SweepResult, error) {
	return s.sweep(ctx, models.NotificationMaintenanceOverdue, campusID, func(tx sqlx.ExtContext, now time.Time) ([]models.NotificationCandidate, error) {
		items, err := s.maintenance.ListOverdue(ctx, tx, campusID, now.Add(-OverdueThreshold))
		if err != nil {
			return nil, err
		}
		candidates := make([]models.NotificationCandidate, 0, len(items))
		for _, m := range items {
			days := int(now.Sub(*m.SentToVendorAt).Hours() / 24)
			vendor := "vendor"
			if m.VendorName != nil {
				vendor = *m.VendorName
			}
			candidates = append(candidates, models.NotificationCandidate{
				CampusID: m.CampusID,
				EntityID: m.ID,
				Message:  fmt.Sprintf("Maintenance %s has been with %s for %d days", m.ID, vendor, days),
			})
		}
		return candidates, nil
	})
}

// Run dispatches to the sweep named by notificationType.
func (s *AutomationService) Run(ctx context.Context, notificationType models.NotificationType, campusID *string) (*dto.SweepResult, error) {
	switch notificationType {
	case models.NotificationWarrantyAlert:
		return s.WarrantyCheck(ctx, campusID)
	case models.NotificationIncidentEscalation:
		return s.IncidentEscalation(ctx, campusID)
	case models.NotificationMaintenanceOverdue:
		return s.MaintenanceOverdue(ctx, campusID)
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidValue, "unknown sweep type")
	}
}

type candidateCollector func(tx sqlx.ExtContext, now time.Time) ([]models.NotificationCandidate, error)

// sweep serialises same-type sweeps with an advisory lock, inserts only keys without an unread row,
// and hands inserted notifications to the queue after commit.
func (s *AutomationService) sweep(ctx context.Context, notificationType models.NotificationType, campusID *string, collect candidateCollector) (*dto.SweepResult, error) {
	if campusID != nil && s.campuses != nil {
		campus, err := s.campuses.FindByID(ctx, nil, *campusID)
		if err != nil {
			return nil, lookupErr(err, "campus not found", "failed to load campus")
		}
		if campus.IsDeleted {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campus not found")
		}
	}

	started := time.Now()
	result := &dto.SweepResult{Type: notificationType, CampusID: campusID}
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		result.Candidates, result.Created = 0, []models.Notification{}
		if err := s.notifications.LockType(ctx, tx, notificationType); err != nil {
			return err
		}
		now := s.now()
		candidates, err := collect(tx, now)
		if err != nil {
			return err
		}
		result.Candidates = len(candidates)
		if len(candidates) == 0 {
			return nil
		}

		existing, err := s.notifications.ExistingUnreadKeys(ctx, tx, notificationType, candidates)
		if err != nil {
			return err
		}
		seen := make(map[models.NotificationKey]bool, len(existing))
		for _, key := range existing {
			seen[key] = true
		}

		for _, c := range candidates {
			key := models.NotificationKey{CampusID: c.CampusID, EntityID: c.EntityID, Type: notificationType}
			if seen[key] {
				continue
			}
			seen[key] = true
			n := models.Notification{
				CampusID:  c.CampusID,
				Type:      notificationType,
				EntityID:  c.EntityID,
				Message:   c.Message,
				CreatedAt: now,
			}
			inserted, err := s.notifications.InsertUnread(ctx, tx, &n)
			if err != nil {
				return err
			}
			if inserted {
				result.Created = append(result.Created, n)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("automation sweep failed", zap.String("type", string(notificationType)), zap.Error(err))
		return nil, appErrors.Internal(err, "automation sweep failed")
	}

	s.metrics.ObserveSweep(string(notificationType), time.Since(started))
	s.metrics.RecordNotificationsCreated(string(notificationType), len(result.Created))
	if len(result.Created) > 0 {
		s.cache.Invalidate(ctx, unreadKeysFor(result.Created)...)
	}
	s.dispatch(result.Created)

	s.logger.Info("automation sweep completed",
		zap.String("type", string(notificationType)),
		zap.Int("candidates", result.Candidates),
		zap.Int("created", len(result.Created)),
	)
	return result, nil
}

func (s *AutomationService) dispatch(created []models.Notification) {
	if s.queue == nil {
		return
	}
	batch := make([]jobs.Job, 0, len(created))
	for _, n := range created {
		batch = append(batch, jobs.Job{Type: DispatchJobType, Payload: messageFor(n)})
	}
	if err := s.queue.EnqueueAsync(batch...); err != nil {
		s.logger.Warn("failed to enqueue notifications", zap.Int("count", len(batch)), zap.Error(err))
	}
}
