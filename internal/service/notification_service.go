package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

type notificationReader interface {
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, campusID *string) (int64, error)
}

// UnreadCountKey is the cache key for a campus unread count; nil means every campus.
func UnreadCountKey(campusID *string) string {
	if campusID == nil {
		return "notifications:unread:all"
	}
	return "notifications:unread:" + *campusID
}

// unreadKeysFor returns every cached count affected by changes to notifications.
func unreadKeysFor(notifications []models.Notification) []string {
	keys := []string{UnreadCountKey(nil)}
	seen := map[string]bool{}
	for _, n := range notifications {
		if seen[n.CampusID] {
			continue
		}
		seen[n.CampusID] = true
		campus := n.CampusID
		keys = append(keys, UnreadCountKey(&campus))
	}
	return keys
}

// NotificationService serves in-app notifications.
type NotificationService struct {
	notifications notificationReader
	cache         *CacheService
	logger        *zap.Logger
	now           func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(notifications notificationReader, cache *CacheService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifications: notifications, cache: cache, logger: logger, now: systemClock}
}

// List returns notifications within the principal's campus scope.
func (s *NotificationService) List(ctx context.Context, query dto.NotificationQuery, principal models.Principal) ([]models.Notification, *models.Pagination, error) {
	campus, err := scopeCampusFilter(principal, query.CampusID)
	if err != nil {
		return nil, nil, err
	}
	filter := models.NotificationFilter{CampusID: campus}
	if query.Type != "" {
		t := models.NotificationType(strings.ToUpper(query.Type))
		if !t.IsValid() {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidValue, "unknown notification type")
		}
		filter.Type = &t
	}
	if query.Unread != nil {
		read := !*query.Unread
		filter.IsRead = &read
	}
	page := models.NewPagination(query.Page, query.PageSize)
	filter.Page, filter.PageSize = page.Page, page.PageSize

	items, total, err := s.notifications.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list notifications", zap.Error(err))
		return nil, nil, appErrors.Internal(err, "failed to list notifications")
	}
	page.TotalCount = total
	return items, &page, nil
}

// UnreadCount returns the unread total for the scoped campus, served from cache when present.
func (s *NotificationService) UnreadCount(ctx context.Context, campusID string, principal models.Principal) (*dto.UnreadCountResponse, error) {
	campus, err := scopeCampusFilter(principal, campusID)
	if err != nil {
		return nil, err
	}
	key := UnreadCountKey(campus)

	var cached dto.UnreadCountResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	total, err := s.notifications.CountUnread(ctx, campus)
	if err != nil {
		s.logger.Error("failed to count unread notifications", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to count notifications")
	}
	resp := &dto.UnreadCountResponse{CampusID: campus, Unread: total}
	s.cache.Set(ctx, key, resp)
	return resp, nil
}

// MarkRead flags a notification as read. Marking an already read notification returns it without writing.
func (s *NotificationService) MarkRead(ctx context.Context, id string, principal models.Principal) (*models.Notification, error) {
	n, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "notification not found", "failed to load notification")
	}
	if err := requireAccess(principal, &n.CampusID, nil); err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}

	now := s.now()
	if err := s.notifications.MarkRead(ctx, id, now); err != nil {
		s.logger.Error("failed to mark notification read", zap.String("notification_id", id), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to update notification")
	}
	n.IsRead, n.ReadAt, n.UpdatedAt = true, &now, now
	s.cache.Invalidate(ctx, unreadKeysFor([]models.Notification{*n})...)
	return n, nil
}
