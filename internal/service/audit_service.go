package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
	"github.com/noah-isme/campus-lab-api/pkg/export"
)

type auditStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// StatusChange describes one observed before/after pair of an audited entity.
type StatusChange struct {
	CampusID    string
	EntityType  models.AuditEntityType
	EntityID    string
	Before      models.Snapshot
	After       models.Snapshot
	PerformedBy string
}

// ExportFile is a rendered audit trail.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AuditService writes and reads the append-only audit trail.
type AuditService struct {
	store  auditStore
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService constructs the service.
func NewAuditService(store auditStore, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &AuditService{store: store, csv: csv, pdf: pdf, logger: logger, now: systemClock}
}

// RecordStatusChange appends an audit row when the status differs between snapshots.
// It must be called with the transaction that performs the mutation; a write failure is returned
// so the caller's transaction rolls back.
func (s *AuditService) RecordStatusChange(ctx context.Context, exec sqlx.ExtContext, change StatusChange) (bool, error) {
	if change.Before.Status() == change.After.Status() {
		return false, nil
	}
	entry := &models.AuditLog{
		CampusID:    change.CampusID,
		EntityType:  change.EntityType,
		EntityID:    change.EntityID,
		Action:      models.AuditActionStatusChange,
		OldValue:    change.Before,
		NewValue:    change.After,
		PerformedBy: change.PerformedBy,
		CreatedAt:   s.now(),
	}
	if err := s.store.Create(ctx, exec, entry); err != nil {
		return false, appErrors.Internal(err, "failed to write audit log")
	}
	return true, nil
}

// List returns the audit trail visible to the principal.
func (s *AuditService) List(ctx context.Context, principal models.Principal, query dto.AuditLogQuery) ([]models.AuditLog, *models.Pagination, error) {
	filter, err := s.filter(principal, query)
	if err != nil {
		return nil, nil, err
	}
	page := models.NewPagination(query.Page, query.PageSize)
	filter.Page, filter.PageSize = page.Page, page.PageSize

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list audit logs")
	}
	page.TotalCount = total
	return items, &page, nil
}

// Export renders the full filtered audit trail as CSV or PDF.
func (s *AuditService) Export(ctx context.Context, principal models.Principal, query dto.AuditLogQuery) (*ExportFile, error) {
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidValue, err.Error())
	}
	filter, err := s.filter(principal, query)
	if err != nil {
		return nil, err
	}

	items, _, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load audit logs for export")
	}

	dataset := auditDataset(items)
	var body []byte
	switch format {
	case export.FormatPDF:
		body, err = s.pdf.Render(dataset, "Audit trail")
	default:
		body, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render audit export")
	}

	s.logger.Info("audit trail exported", zap.String("format", string(format)), zap.Int("rows", len(items)), zap.String("user_id", principal.ID))
	return &ExportFile{
		Filename:    fmt.Sprintf("audit-trail-%s.%s", s.now().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *AuditService) filter(principal models.Principal, query dto.AuditLogQuery) (models.AuditLogFilter, error) {
	campus, err := scopeCampusFilter(principal, query.CampusID)
	if err != nil {
		return models.AuditLogFilter{}, err
	}
	filter := models.AuditLogFilter{CampusID: campus}
	if query.EntityType != "" {
		et := models.AuditEntityType(query.EntityType)
		switch et {
		case models.AuditEntityEquipment, models.AuditEntityIncident, models.AuditEntityMaintenance:
		default:
			return filter, appErrors.Clone(appErrors.ErrInvalidValue, "unknown entityType")
		}
		filter.EntityType = &et
	}
	if query.EntityID != "" {
		filter.EntityID = &query.EntityID
	}
	if query.From != "" {
		from, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrInvalidValue, "from must be RFC3339")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrInvalidValue, "to must be RFC3339")
		}
		filter.To = &to
	}
	return filter, nil
}

var auditExportHeaders = []string{"createdAt", "campusId", "entityType", "entityId", "action", "performedBy", "oldValue", "newValue"}

func auditDataset(items []models.AuditLog) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"createdAt":   item.CreatedAt.UTC().Format(time.RFC3339),
			"campusId":    item.CampusID,
			"entityType":  string(item.EntityType),
			"entityId":    item.EntityID,
			"action":      item.Action,
			"performedBy": item.PerformedBy,
			"oldValue":    snapshotText(item.OldValue),
			"newValue":    snapshotText(item.NewValue),
		})
	}
	return export.Dataset{Headers: auditExportHeaders, Rows: rows}
}

func snapshotText(s models.Snapshot) string {
	if s == nil {
		return ""
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(raw)
}
