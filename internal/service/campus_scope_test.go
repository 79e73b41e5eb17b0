package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lab-api/internal/models"
	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

func strPtr(v string) *string { return &v }

func TestCheckAccessGlobalRolesAlwaysAllowed(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleSuperAdmin, models.RoleDeveloper} {
		p := models.Principal{ID: "u1", Role: role}
		for _, campus := range []*string{nil, strPtr("c2")} {
			for _, owner := range []*string{nil, strPtr("someone")} {
				assert.True(t, CheckAccess(p, campus, owner).Allowed, "%s campus=%v owner=%v", role, campus, owner)
			}
		}
	}
}

func TestCheckAccessAdmin(t *testing.T) {
	p := models.Principal{ID: "a1", Role: models.RoleAdmin, CampusID: strPtr("c1")}
	assert.True(t, CheckAccess(p, nil, nil).Allowed)
	assert.True(t, CheckAccess(p, strPtr("c1"), nil).Allowed)
	assert.False(t, CheckAccess(p, strPtr("c2"), nil).Allowed)
	assert.True(t, CheckAccess(p, strPtr("c1"), strPtr("other")).Allowed, "owner is ignored for admins")

	noCampus := models.Principal{ID: "a2", Role: models.RoleAdmin}
	assert.False(t, CheckAccess(noCampus, strPtr("c1"), nil).Allowed)
}

func TestCheckAccessRestrictedRolesMatrix(t *testing.T) {
	type tc struct {
		principalCampus *string
		resourceCampus  *string
		owner           *string
		want            bool
	}
	cases := []tc{
		{strPtr("c1"), strPtr("c1"), nil, true},
		{strPtr("c1"), strPtr("c2"), nil, false},
		{strPtr("c1"), nil, nil, false},
		{nil, strPtr("c1"), nil, false},
		{nil, nil, nil, false},
		{strPtr("c1"), strPtr("c2"), strPtr("u1"), true},
		{strPtr("c1"), strPtr("c1"), strPtr("u2"), false},
		{nil, nil, strPtr("u1"), true},
		{strPtr("c1"), nil, strPtr("u2"), false},
	}
	for _, role := range []models.UserRole{models.RoleLabAssistant, models.RoleLecturer, models.RoleStudent} {
		for i, c := range cases {
			t.Run(fmt.Sprintf("%s/%d", role, i), func(t *testing.T) {
				p := models.Principal{ID: "u1", Role: role, CampusID: c.principalCampus}
				d := CheckAccess(p, c.resourceCampus, c.owner)
				assert.Equal(t, c.want, d.Allowed, d.Reason)
				assert.NotEmpty(t, d.Reason)
			})
		}
	}
}

func TestCheckAccessUnknownRoleDenied(t *testing.T) {
	p := models.Principal{ID: "u1", Role: "JANITOR", CampusID: strPtr("c1")}
	assert.False(t, CheckAccess(p, strPtr("c1"), strPtr("u1")).Allowed)
}

func TestCheckAccessIsDeterministic(t *testing.T) {
	p := models.Principal{ID: "u1", Role: models.RoleLecturer, CampusID: strPtr("c1")}
	first := CheckAccess(p, strPtr("c1"), nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CheckAccess(p, strPtr("c1"), nil))
	}
}

func TestScopeCampusFilter(t *testing.T) {
	campus, err := scopeCampusFilter(models.Principal{Role: models.RoleDeveloper}, "")
	require.NoError(t, err)
	assert.Nil(t, campus)

	campus, err = scopeCampusFilter(models.Principal{Role: models.RoleSuperAdmin}, "c9")
	require.NoError(t, err)
	assert.Equal(t, "c9", *campus)

	campus, err = scopeCampusFilter(models.Principal{Role: models.RoleStudent, CampusID: strPtr("c1")}, "")
	require.NoError(t, err)
	assert.Equal(t, "c1", *campus)

	_, err = scopeCampusFilter(models.Principal{Role: models.RoleAdmin, CampusID: strPtr("c1")}, "c2")
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))

	_, err = scopeCampusFilter(models.Principal{Role: models.RoleLecturer}, "")
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied))
}
