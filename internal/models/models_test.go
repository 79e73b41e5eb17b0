package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotValueScan(t *testing.T) {
	v, err := Snapshot{"status": "OPEN", "assignedToId": nil}.Value()
	require.NoError(t, err)

	var s Snapshot
	require.NoError(t, s.Scan(v))
	assert.Equal(t, "OPEN", s.Status())
	assert.Contains(t, s, "assignedToId")

	var empty Snapshot
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
	assert.Error(t, empty.Scan(42))
}

func TestAuditSnapshots(t *testing.T) {
	assignee := "u1"
	inc := Incident{Status: IncidentAssigned, AssignedToID: &assignee}
	snap := inc.AuditSnapshot()
	assert.Equal(t, "ASSIGNED", snap["status"])
	assert.Equal(t, "u1", snap["assignedToId"])
	assert.Nil(t, snap["rootCause"])

	m := Maintenance{Status: MaintenanceReturned, Cost: decimal.NewNullDecimal(decimal.RequireFromString("125.50"))}
	assert.Equal(t, "125.5", m.AuditSnapshot()["cost"])
	assert.Nil(t, (&Maintenance{}).AuditSnapshot()["cost"])
}

func TestRoleHelpers(t *testing.T) {
	for _, r := range AllRoles {
		assert.True(t, r.IsValid(), r)
	}
	assert.False(t, UserRole("JANITOR").IsValid())
	assert.True(t, RoleDeveloper.BypassesScope())
	assert.False(t, RoleAdmin.BypassesScope())
	assert.True(t, RoleAdmin.IsManager())
	assert.False(t, RoleLabAssistant.IsManager())
}

func TestPaginationBounds(t *testing.T) {
	p := NewPagination(0, 500)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, 40, NewPagination(3, 20).Offset())
}
