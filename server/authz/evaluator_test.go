package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/server/identity"
	"taskflow/server/models"
)

func orgUser(kind models.UserKind, orgID int64) identity.CurrentUser {
	return identity.CurrentUser{
		ID:           1,
		Kind:         kind,
		Status:       models.UserActive,
		Organization: &identity.Organization{ID: orgID, Status: models.OrganizationActive},
	}
}

func TestSuperAdminCanNothing(t *testing.T) {
	u := identity.CurrentUser{ID: 1, Kind: models.KindSuperAdmin, Status: models.UserActive}
	e := NewEvaluator(u, models.Project{ID: 1, OrganizationID: 1}, NewPermissionSet(All()...))
	for _, p := range All() {
		assert.False(t, e.Can(p), p)
	}
	assert.Empty(t, e.Granted())
	assert.ErrorIs(t, e.Require(TicketCreate), models.ErrForbidden)
}

func TestOrganizationAdmin(t *testing.T) {
	own := NewEvaluator(orgUser(models.KindOrganizationAdmin, 3), models.Project{ID: 1, OrganizationID: 3}, NewPermissionSet())
	other := NewEvaluator(orgUser(models.KindOrganizationAdmin, 3), models.Project{ID: 2, OrganizationID: 4}, NewPermissionSet(All()...))
	for _, p := range All() {
		assert.True(t, own.Can(p), p)
		assert.False(t, other.Can(p), p)
	}
	assert.Equal(t, All(), own.Granted())
	require.NoError(t, own.Require(TicketDelete))
}

func TestEmployeeHasExactlyRolePermissions(t *testing.T) {
	granted := NewPermissionSet(ProjectView, TicketCreate)
	e := NewEvaluator(orgUser(models.KindEmployee, 3), models.Project{ID: 1, OrganizationID: 3}, granted)
	for _, p := range All() {
		assert.Equal(t, granted.Has(p), e.Can(p), p)
	}
	assert.Equal(t, []Permission{ProjectView, TicketCreate}, e.Granted())
	assert.ErrorIs(t, e.Require(TicketColumnCreate), models.ErrForbidden)
}

func TestUnknownKindCanNothing(t *testing.T) {
	e := NewEvaluator(orgUser("", 3), models.Project{ID: 1, OrganizationID: 3}, NewPermissionSet(All()...))
	assert.False(t, e.Can(ProjectView))
}

func TestParsePermission(t *testing.T) {
	cases := []struct {
		in   string
		want Permission
		ok   bool
	}{
		{"TICKET_CREATE", TicketCreate, true},
		{" ticket_column_create ", TicketColumnCreate, true},
		{"TICKET_EXPLODE", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParsePermission(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestSetFromCodesDropsUnknown(t *testing.T) {
	s := SetFromCodes([]string{"PROJECT_VIEW", "NOPE", "TICKET_EDIT", "PROJECT_VIEW"})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Permission{ProjectView, TicketEdit}, s.List())
}
