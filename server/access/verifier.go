// Package access decides whether the current user may reach an organization,
// project or role. Every denial is reported as models.ErrNotFound so callers
// cannot probe for the existence of resources they may not see.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskflow/server/authz"
	"taskflow/server/identity"
	"taskflow/server/models"
)

// Lookup reads the records access decisions are made against. Each method
// returns models.ErrNotFound when the record is absent from the given scope.
type Lookup interface {
	Organization(ctx context.Context, id int64) (models.Organization, error)
	Project(ctx context.Context, organizationID, projectID int64) (models.Project, error)
	Role(ctx context.Context, organizationID, roleID int64) (models.Role, error)
	Employee(ctx context.Context, organizationID, employeeID int64) (models.User, error)
	ProjectMember(ctx context.Context, projectID, userID int64) (models.ProjectMember, error)
}

type Verifier struct {
	lookup Lookup
	log    *slog.Logger
}

func NewVerifier(lookup Lookup, log *slog.Logger) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{lookup: lookup, log: log}
}

// ProjectAccess is the result of a successful project check.
type ProjectAccess struct {
	User    identity.CurrentUser
	Project models.Project
	// Member is nil for organization admins.
	Member *models.ProjectMember
}

// Evaluator returns the permission evaluator for this access.
func (pa ProjectAccess) Evaluator() authz.Evaluator {
	var perms authz.PermissionSet
	if pa.Member != nil {
		perms = authz.SetFromCodes(pa.Member.Permissions)
	}
	return authz.NewEvaluator(pa.User, pa.Project, perms)
}

func denied(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{models.ErrNotFound}, args...)...)
}

// lookupErr keeps not-found as not-found and wraps anything else.
func lookupErr(what string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return denied("%s", what)
	}
	return fmt.Errorf("lookup %s: %w", what, err)
}

// VerifySuperAdmin passes iff the user is an active super-admin.
func (v *Verifier) VerifySuperAdmin(user identity.CurrentUser) error {
	if !user.IsSuperAdmin() || !user.Active() {
		return denied("user %d is not a super-admin", user.ID)
	}
	return nil
}

// VerifyOrganizationMember passes iff the user is an active admin or employee
// of an active organizationID.
func (v *Verifier) VerifyOrganizationMember(ctx context.Context, user identity.CurrentUser, organizationID int64) error {
	if user.IsSuperAdmin() || !user.BelongsTo(organizationID) || !user.Active() {
		return denied("user %d outside organization %d", user.ID, organizationID)
	}
	org, err := v.lookup.Organization(ctx, organizationID)
	if err != nil {
		return lookupErr(fmt.Sprintf("organization %d", organizationID), err)
	}
	if org.Status != models.OrganizationActive {
		return denied("organization %d is %s", organizationID, org.Status)
	}
	return nil
}

// VerifyOrganizationAdminAccess passes iff the user administers organizationID.
// Wrong organization and wrong tier yield the same error.
func (v *Verifier) VerifyOrganizationAdminAccess(ctx context.Context, user identity.CurrentUser, organizationID int64) error {
	if !user.IsOrganizationAdmin() {
		return denied("user %d is not an organization admin", user.ID)
	}
	return v.VerifyOrganizationMember(ctx, user, organizationID)
}

// VerifyProjectAccess passes iff the user may at least read projectID in
// organizationID. Organization admins see every project of their organization;
// employees need an active membership whose role grants PROJECT_VIEW.
func (v *Verifier) VerifyProjectAccess(ctx context.Context, user identity.CurrentUser, organizationID, projectID int64) (ProjectAccess, error) {
	if err := v.VerifyOrganizationMember(ctx, user, organizationID); err != nil {
		return ProjectAccess{}, err
	}
	project, err := v.lookup.Project(ctx, organizationID, projectID)
	if err != nil {
		return ProjectAccess{}, lookupErr(fmt.Sprintf("project %d", projectID), err)
	}
	pa := ProjectAccess{User: user, Project: project}
	if user.IsOrganizationAdmin() {
		return pa, nil
	}

	member, err := v.lookup.ProjectMember(ctx, projectID, user.ID)
	if err != nil {
		return ProjectAccess{}, lookupErr(fmt.Sprintf("membership of %d in project %d", user.ID, projectID), err)
	}
	if member.Status != models.MemberActive {
		return ProjectAccess{}, denied("membership of %d in project %d is %s", user.ID, projectID, member.Status)
	}
	pa.Member = &member
	if !pa.Evaluator().Can(authz.ProjectView) {
		v.log.Debug("project access without view permission", "user", user.ID, "project", projectID, "role", member.RoleID)
		return ProjectAccess{}, denied("user %d cannot view project %d", user.ID, projectID)
	}
	return pa, nil
}

// VerifyProjectIDValid checks that projectID exists in organizationID.
func (v *Verifier) VerifyProjectIDValid(ctx context.Context, organizationID, projectID int64) (models.Project, error) {
	p, err := v.lookup.Project(ctx, organizationID, projectID)
	if err != nil {
		return models.Project{}, lookupErr(fmt.Sprintf("project %d", projectID), err)
	}
	return p, nil
}

// VerifyRoleIDValid checks that roleID is a global role or belongs to organizationID.
func (v *Verifier) VerifyRoleIDValid(ctx context.Context, organizationID, roleID int64) (models.Role, error) {
	r, err := v.lookup.Role(ctx, organizationID, roleID)
	if err != nil {
		return models.Role{}, lookupErr(fmt.Sprintf("role %d", roleID), err)
	}
	if r.OrganizationID != nil && *r.OrganizationID != organizationID {
		return models.Role{}, denied("role %d outside organization %d", roleID, organizationID)
	}
	return r, nil
}

// VerifyEmployeeIDValid checks that employeeID is an employee of organizationID.
func (v *Verifier) VerifyEmployeeIDValid(ctx context.Context, organizationID, employeeID int64) (models.User, error) {
	u, err := v.lookup.Employee(ctx, organizationID, employeeID)
	if err != nil {
		return models.User{}, lookupErr(fmt.Sprintf("employee %d", employeeID), err)
	}
	if u.Kind != models.KindEmployee || u.OrganizationID == nil || *u.OrganizationID != organizationID {
		return models.User{}, denied("employee %d outside organization %d", employeeID, organizationID)
	}
	return u, nil
}
