package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lab-api/internal/models"
)

// memDB is an in-memory stand-in for Postgres. Transactions are serialised and
// restore a snapshot of every table when fn fails, mirroring a rollback.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	campuses      map[string]models.Campus
	equipment     map[string]models.Equipment
	incidents     map[string]models.Incident
	maintenance   map[string]models.Maintenance
	audits        []models.AuditLog
	notifications map[string]models.Notification

	auditErr       error
	markReadWrites int
	txCount        int
}

type memTables struct {
	campuses      map[string]models.Campus
	equipment     map[string]models.Equipment
	incidents     map[string]models.Incident
	maintenance   map[string]models.Maintenance
	audits        []models.AuditLog
	notifications map[string]models.Notification
}

func newMemDB() *memDB {
	return &memDB{
		campuses:      map[string]models.Campus{},
		equipment:     map[string]models.Equipment{},
		incidents:     map[string]models.Incident{},
		maintenance:   map[string]models.Maintenance{},
		notifications: map[string]models.Notification{},
	}
}

func copyMap[T any](in map[string]T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (db *memDB) WithinTx(_ context.Context, fn func(tx sqlx.ExtContext) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	db.txCount++
	snap := memTables{
		campuses:      copyMap(db.campuses),
		equipment:     copyMap(db.equipment),
		incidents:     copyMap(db.incidents),
		maintenance:   copyMap(db.maintenance),
		audits:        append([]models.AuditLog(nil), db.audits...),
		notifications: copyMap(db.notifications),
	}
	db.mu.Unlock()

	if err := fn(nil); err != nil {
		db.mu.Lock()
		db.campuses, db.equipment, db.incidents = snap.campuses, snap.equipment, snap.incidents
		db.maintenance, db.audits, db.notifications = snap.maintenance, snap.audits, snap.notifications
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *memDB) auditRows() []models.AuditLog {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]models.AuditLog(nil), db.audits...)
}

func (db *memDB) incident(id string) models.Incident {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.incidents[id]
}

func (db *memDB) equipmentRow(id string) models.Equipment {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.equipment[id]
}

func (db *memDB) maintenanceRow(id string) models.Maintenance {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.maintenance[id]
}

func (db *memDB) unread() []models.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Notification
	for _, n := range db.notifications {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}

func paginate[T any](items []T, page, size int) []T {
	p := models.NewPagination(page, size)
	start := p.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func notFound(kind, id string) error {
	return fmt.Errorf("get %s %s: %w", kind, id, sql.ErrNoRows)
}

// campuses

type memCampuses struct{ db *memDB }

func (s memCampuses) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Campus, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.campuses[id]
	if !ok {
		return nil, notFound("campus", id)
	}
	return &c, nil
}

func (s memCampuses) ListActiveIDs(context.Context) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []string
	for id, c := range s.db.campuses {
		if !c.IsDeleted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// equipment

type memEquipment struct{ db *memDB }

func (s memEquipment) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Equipment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.equipment[id]
	if !ok {
		return nil, notFound("equipment", id)
	}
	return &e, nil
}

func (s memEquipment) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Equipment, error) {
	return s.FindByID(ctx, tx, id)
}

func (s memEquipment) UpdateStatus(_ context.Context, _ sqlx.ExtContext, id string, status models.EquipmentStatus, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.equipment[id]
	if !ok {
		return notFound("equipment", id)
	}
	e.Status, e.UpdatedAt = status, at
	s.db.equipment[id] = e
	return nil
}

func (s memEquipment) List(_ context.Context, f models.EquipmentFilter) ([]models.Equipment, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Equipment
	for _, e := range s.db.equipment {
		if e.IsDeleted || (f.CampusID != nil && e.CampusID != *f.CampusID) || (f.Status != nil && e.Status != *f.Status) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f.Page, f.PageSize), len(out), nil
}

func (s memEquipment) ListWarrantyExpiring(_ context.Context, _ sqlx.ExtContext, campusID *string, from, to time.Time) ([]models.Equipment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Equipment
	for _, e := range s.db.equipment {
		if e.IsDeleted || e.WarrantyEndDate == nil || (campusID != nil && e.CampusID != *campusID) {
			continue
		}
		if e.WarrantyEndDate.Before(from) || e.WarrantyEndDate.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// incidents

type memIncidents struct{ db *memDB }

func (s memIncidents) Create(_ context.Context, _ sqlx.ExtContext, inc *models.Incident) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	inc.UpdatedAt = inc.CreatedAt
	s.db.incidents[inc.ID] = *inc
	return nil
}

func (s memIncidents) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Incident, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inc, ok := s.db.incidents[id]
	if !ok {
		return nil, notFound("incident", id)
	}
	return &inc, nil
}

func (s memIncidents) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Incident, error) {
	return s.FindByID(ctx, tx, id)
}

func (s memIncidents) UpdateLifecycle(_ context.Context, _ sqlx.ExtContext, inc *models.Incident) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur := s.db.incidents[inc.ID]
	cur.Status, cur.AssignedToID = inc.Status, inc.AssignedToID
	cur.RootCause, cur.CorrectiveAction, cur.PreventiveAction = inc.RootCause, inc.CorrectiveAction, inc.PreventiveAction
	cur.ResolvedAt, cur.VerifiedAt, cur.UpdatedAt = inc.ResolvedAt, inc.VerifiedAt, inc.UpdatedAt
	s.db.incidents[inc.ID] = cur
	return nil
}

func (s memIncidents) SetDeleted(_ context.Context, _ sqlx.ExtContext, id string, deleted bool, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inc := s.db.incidents[id]
	inc.IsDeleted, inc.UpdatedAt = deleted, at
	s.db.incidents[id] = inc
	return nil
}

func (s memIncidents) List(_ context.Context, f models.IncidentFilter) ([]models.Incident, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Incident
	for _, inc := range s.db.incidents {
		if (!f.IncludeDeleted && inc.IsDeleted) || (f.CampusID != nil && inc.CampusID != *f.CampusID) ||
			(f.Status != nil && inc.Status != *f.Status) || (f.Severity != nil && inc.Severity != *f.Severity) ||
			(f.AssignedToID != nil && (inc.AssignedToID == nil || *inc.AssignedToID != *f.AssignedToID)) {
			continue
		}
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Page, f.PageSize), len(out), nil
}

func (s memIncidents) ListEscalationCandidates(_ context.Context, _ sqlx.ExtContext, campusID *string, createdBefore time.Time) ([]models.Incident, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Incident
	for _, inc := range s.db.incidents {
		if inc.IsDeleted || (campusID != nil && inc.CampusID != *campusID) || inc.CreatedAt.After(createdBefore) {
			continue
		}
		if inc.Severity != models.SeverityHigh && inc.Severity != models.SeverityCritical {
			continue
		}
		switch inc.Status {
		case models.IncidentOpen, models.IncidentAssigned, models.IncidentInProgress:
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// maintenance

type memMaintenance struct{ db *memDB }

func (s memMaintenance) Create(_ context.Context, _ sqlx.ExtContext, m *models.Maintenance) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.UpdatedAt = m.CreatedAt
	s.db.maintenance[m.ID] = *m
	return nil
}

func (s memMaintenance) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Maintenance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.maintenance[id]
	if !ok {
		return nil, notFound("maintenance", id)
	}
	return &m, nil
}

func (s memMaintenance) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Maintenance, error) {
	return s.FindByID(ctx, tx, id)
}

func (s memMaintenance) UpdateLifecycle(_ context.Context, _ sqlx.ExtContext, m *models.Maintenance) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.maintenance[m.ID] = *m
	return nil
}

func (s memMaintenance) SetDeleted(_ context.Context, _ sqlx.ExtContext, id string, deleted bool, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m := s.db.maintenance[id]
	m.IsDeleted, m.UpdatedAt = deleted, at
	s.db.maintenance[id] = m
	return nil
}

func (s memMaintenance) List(_ context.Context, f models.MaintenanceFilter) ([]models.Maintenance, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Maintenance
	for _, m := range s.db.maintenance {
		if m.IsDeleted || (f.CampusID != nil && m.CampusID != *f.CampusID) || (f.Status != nil && m.Status != *f.Status) ||
			(f.EquipmentID != nil && m.EquipmentID != *f.EquipmentID) || (f.IncidentID != nil && m.IncidentID != *f.IncidentID) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Page, f.PageSize), len(out), nil
}

func (s memMaintenance) ListOverdue(_ context.Context, _ sqlx.ExtContext, campusID *string, sentBefore time.Time) ([]models.Maintenance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Maintenance
	for _, m := range s.db.maintenance {
		if m.IsDeleted || m.Status != models.MaintenanceSent || m.SentToVendorAt == nil || m.SentToVendorAt.After(sentBefore) {
			continue
		}
		if campusID != nil && m.CampusID != *campusID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// audit

type memAudits struct{ db *memDB }

func (s memAudits) Create(_ context.Context, _ sqlx.ExtContext, entry *models.AuditLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.auditErr != nil {
		return s.db.auditErr
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.db.audits = append(s.db.audits, *entry)
	return nil
}

func (s memAudits) List(_ context.Context, f models.AuditLogFilter) ([]models.AuditLog, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.AuditLog
	for _, a := range s.db.audits {
		if (f.CampusID != nil && a.CampusID != *f.CampusID) || (f.EntityType != nil && a.EntityType != *f.EntityType) ||
			(f.EntityID != nil && a.EntityID != *f.EntityID) {
			continue
		}
		out = append(out, a)
	}
	if f.PageSize <= 0 {
		return out, len(out), nil
	}
	return paginate(out, f.Page, f.PageSize), len(out), nil
}

// notifications

type memNotifications struct{ db *memDB }

func (s memNotifications) LockType(context.Context, sqlx.ExtContext, models.NotificationType) error {
	return nil
}

func (s memNotifications) ExistingUnreadKeys(_ context.Context, _ sqlx.ExtContext, t models.NotificationType, candidates []models.NotificationCandidate) ([]models.NotificationKey, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	wanted := map[models.NotificationKey]bool{}
	for _, c := range candidates {
		wanted[models.NotificationKey{CampusID: c.CampusID, EntityID: c.EntityID, Type: t}] = true
	}
	var keys []models.NotificationKey
	for _, n := range s.db.notifications {
		if !n.IsRead && wanted[n.DedupKey()] {
			keys = append(keys, n.DedupKey())
		}
	}
	return keys, nil
}

func (s memNotifications) InsertUnread(_ context.Context, _ sqlx.ExtContext, n *models.Notification) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.notifications {
		if !existing.IsRead && existing.DedupKey() == n.DedupKey() {
			return false, nil
		}
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.UpdatedAt = n.CreatedAt
	s.db.notifications[n.ID] = *n
	return true, nil
}

func (s memNotifications) FindByID(_ context.Context, id string) (*models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifications[id]
	if !ok {
		return nil, notFound("notification", id)
	}
	return &n, nil
}

func (s memNotifications) MarkRead(_ context.Context, id string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.markReadWrites++
	n := s.db.notifications[id]
	if n.IsRead {
		return nil
	}
	n.IsRead, n.ReadAt, n.UpdatedAt = true, &at, at
	s.db.notifications[id] = n
	return nil
}

func (s memNotifications) List(_ context.Context, f models.NotificationFilter) ([]models.Notification, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Notification
	for _, n := range s.db.notifications {
		if (f.CampusID != nil && n.CampusID != *f.CampusID) || (f.Type != nil && n.Type != *f.Type) || (f.IsRead != nil && n.IsRead != *f.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f.Page, f.PageSize), len(out), nil
}

func (s memNotifications) CountUnread(_ context.Context, campusID *string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var total int64
	for _, n := range s.db.notifications {
		if !n.IsRead && (campusID == nil || n.CampusID == *campusID) {
			total++
		}
	}
	return total, nil
}

// fixtures

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func (db *memDB) seedCampus(id string) {
	db.campuses[id] = models.Campus{ID: id, Code: id, Name: "Campus " + id, CreatedAt: testNow}
}

func (db *memDB) seedEquipment(id, campus string, status models.EquipmentStatus) {
	db.equipment[id] = models.Equipment{ID: id, CampusID: campus, Name: "Equipment " + id, Status: status, CreatedAt: testNow, UpdatedAt: testNow}
}

func (db *memDB) seedIncident(inc models.Incident) {
	if inc.Severity == "" {
		inc.Severity = models.SeverityMedium
	}
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = testNow
	}
	inc.UpdatedAt = inc.CreatedAt
	db.incidents[inc.ID] = inc
}

func (db *memDB) seedMaintenance(m models.Maintenance) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = testNow
	}
	m.UpdatedAt = m.CreatedAt
	db.maintenance[m.ID] = m
}
