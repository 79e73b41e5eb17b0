package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

func newTestAudit(db *memDB) *AuditService {
	svc := NewAuditService(memAudits{db: db}, nil, nil, nil)
	svc.now = fixedClock
	return svc
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestRecordStatusChangeSkipsUnchangedStatus(t *testing.T) {
	db := newMemDB()
	svc := newTestAudit(db)

	written, err := svc.RecordStatusChange(context.Background(), nil, StatusChange{
		CampusID:   "c1",
		EntityType: models.AuditEntityEquipment,
		EntityID:   "eq-1",
		Before:     models.Snapshot{"status": "ACTIVE"},
		After:      models.Snapshot{"status": "ACTIVE"},
	})
	require.NoError(t, err)
	assert.False(t, written)
	assert.Empty(t, db.auditRows())

	written, err = svc.RecordStatusChange(context.Background(), nil, StatusChange{
		CampusID:    "c1",
		EntityType:  models.AuditEntityEquipment,
		EntityID:    "eq-1",
		Before:      models.Snapshot{"status": "ACTIVE"},
		After:       models.Snapshot{"status": "DAMAGED"},
		PerformedBy: "u1",
	})
	require.NoError(t, err)
	assert.True(t, written)
	rows := db.auditRows()
	require.Len(t, rows, 1)
	assert.Equal(t, models.AuditActionStatusChange, rows[0].Action)
	assert.Equal(t, "ACTIVE", rows[0].OldValue.Status())
	assert.Equal(t, "DAMAGED", rows[0].NewValue.Status())
	assert.Equal(t, testNow, rows[0].CreatedAt)
}

func TestRecordStatusChangeSurfacesWriteFailure(t *testing.T) {
	db := newMemDB()
	db.auditErr = assert.AnError
	svc := newTestAudit(db)

	_, err := svc.RecordStatusChange(context.Background(), nil, StatusChange{
		Before: models.Snapshot{"status": "OPEN"},
		After:  models.Snapshot{"status": "ASSIGNED"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, codeOf(t, err))
}

func TestAuditListScopesToPrincipalCampus(t *testing.T) {
	db := newMemDB()
	db.audits = []models.AuditLog{
		{ID: "a1", CampusID: "c1", EntityType: models.AuditEntityIncident, EntityID: "i1"},
		{ID: "a2", CampusID: "c2", EntityType: models.AuditEntityIncident, EntityID: "i2"},
	}
	svc := newTestAudit(db)
	admin := models.Principal{ID: "admin", Role: models.RoleAdmin, CampusID: strPtr("c1")}

	items, page, err := svc.List(context.Background(), admin, dto.AuditLogQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
	assert.Equal(t, 1, page.TotalCount)

	_, _, err = svc.List(context.Background(), admin, dto.AuditLogQuery{CampusID: "c2"})
	assert.Equal(t, appErrors.ErrAccessDenied.Code, codeOf(t, err))

	_, _, err = svc.List(context.Background(), admin, dto.AuditLogQuery{EntityType: "LAB"})
	assert.Equal(t, appErrors.ErrInvalidValue.Code, codeOf(t, err))

	_, _, err = svc.List(context.Background(), admin, dto.AuditLogQuery{From: "yesterday"})
	assert.Equal(t, appErrors.ErrInvalidValue.Code, codeOf(t, err))
}

func TestAuditExportRendersCSV(t *testing.T) {
	db := newMemDB()
	db.audits = []models.AuditLog{{
		ID:          "a1",
		CampusID:    "c1",
		EntityType:  models.AuditEntityMaintenance,
		EntityID:    "m1",
		Action:      models.AuditActionStatusChange,
		OldValue:    models.Snapshot{"status": "PENDING"},
		NewValue:    models.Snapshot{"status": "SENT"},
		PerformedBy: "admin",
		CreatedAt:   testNow,
	}}
	svc := newTestAudit(db)
	root := models.Principal{ID: "root", Role: models.RoleSuperAdmin}

	file, err := svc.Export(context.Background(), root, dto.AuditLogQuery{})
	require.NoError(t, err)
	assert.Equal(t, "audit-trail-20260310-090000.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")
	body := string(file.Body)
	assert.True(t, strings.HasPrefix(body, "createdAt,campusId,entityType"))
	assert.Contains(t, body, "MAINTENANCE")
	assert.Contains(t, body, `""status"":""SENT""`)

	pdf, err := svc.Export(context.Background(), root, dto.AuditLogQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Body), "%PDF"))

	_, err = svc.Export(context.Background(), root, dto.AuditLogQuery{Format: "xlsx"})
	assert.Equal(t, appErrors.ErrInvalidValue.Code, codeOf(t, err))
}
