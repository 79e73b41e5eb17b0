package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

func newTestNotificationService(db *memDB, cache *CacheService) *NotificationService {
	svc := NewNotificationService(memNotifications{db: db}, cache, nil)
	svc.now = fixedClock
	return svc
}

func seedNotification(db *memDB, id, campus string, read bool) {
	db.notifications[id] = models.Notification{
		ID:        id,
		CampusID:  campus,
		Type:      models.NotificationWarrantyAlert,
		EntityID:  "eq-" + id,
		Message:   "warranty expiring",
		IsRead:    read,
		CreatedAt: testNow.Add(-time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
	}
}

func TestMarkReadIsIdempotentWithoutWrite(t *testing.T) {
	db := newMemDB()
	seedNotification(db, "n1", "c1", false)
	svc := newTestNotificationService(db, nil)
	ctx := context.Background()

	first, err := svc.MarkRead(ctx, "n1", assistantC1)
	require.NoError(t, err)
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)
	assert.Equal(t, 1, db.markReadWrites)

	second, err := svc.MarkRead(ctx, "n1", assistantC1)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, 1, db.markReadWrites)
}

func TestMarkReadChecksScope(t *testing.T) {
	db := newMemDB()
	seedNotification(db, "n1", "c1", false)
	svc := newTestNotificationService(db, nil)

	_, err := svc.MarkRead(context.Background(), "n1", adminC2)
	assert.Equal(t, appErrors.ErrAccessDenied.Code, codeOf(t, err))

	_, err = svc.MarkRead(context.Background(), "missing", adminC1)
	assert.Equal(t, appErrors.ErrNotFound.Code, codeOf(t, err))
	assert.Zero(t, db.markReadWrites)
}

func TestUnreadCountUsesCacheAndInvalidatesOnRead(t *testing.T) {
	db := newMemDB()
	seedNotification(db, "n1", "c1", false)
	seedNotification(db, "n2", "c1", false)
	seedNotification(db, "n3", "c2", false)
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := newTestNotificationService(db, cache)
	ctx := context.Background()

	count, err := svc.UnreadCount(ctx, "", studentC1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Unread)
	assert.Equal(t, "c1", *count.CampusID)

	seedNotification(db, "n4", "c1", false)
	cached, err := svc.UnreadCount(ctx, "", studentC1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.Unread)

	_, err = svc.MarkRead(ctx, "n1", studentC1)
	require.NoError(t, err)
	fresh, err := svc.UnreadCount(ctx, "", studentC1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Unread)

	all, err := svc.UnreadCount(ctx, "", superAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Unread)
	assert.Nil(t, all.CampusID)
}

func TestNotificationListFilters(t *testing.T) {
	db := newMemDB()
	seedNotification(db, "n1", "c1", false)
	seedNotification(db, "n2", "c1", true)
	seedNotification(db, "n3", "c2", false)
	svc := newTestNotificationService(db, nil)
	unread := true

	items, page, err := svc.List(context.Background(), dto.NotificationQuery{Unread: &unread}, adminC1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n1", items[0].ID)
	assert.Equal(t, 1, page.TotalCount)

	_, _, err = svc.List(context.Background(), dto.NotificationQuery{Type: "SMS"}, adminC1)
	assert.Equal(t, appErrors.ErrInvalidValue.Code, codeOf(t, err))
}
