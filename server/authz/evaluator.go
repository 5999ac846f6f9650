// Package authz decides fine-grained, project-scoped permissions.
package authz

import (
	"fmt"

	"taskflow/server/identity"
	"taskflow/server/models"
)

// Evaluator answers permission checks for one user within one project. It is
// built per request and holds no state beyond its inputs.
type Evaluator struct {
	user    identity.CurrentUser
	project models.Project
	perms   PermissionSet
}

// NewEvaluator returns an Evaluator for user acting on project, where perms
// are the codes granted by the user's role in that project.
func NewEvaluator(user identity.CurrentUser, project models.Project, perms PermissionSet) Evaluator {
	return Evaluator{user: user, project: project, perms: perms}
}

// Can reports whether the user holds p in the project.
//
// Super-admins never operate on project data. Organization admins hold every
// permission inside their own organization and none outside it. Employees hold
// exactly the permissions of their role.
func (e Evaluator) Can(p Permission) bool {
	switch e.user.Kind {
	case models.KindSuperAdmin:
		return false
	case models.KindOrganizationAdmin:
		return e.user.Organization != nil && e.project.OrganizationID == e.user.Organization.ID
	case models.KindEmployee:
		return e.perms.Has(p)
	default:
		return false
	}
}

// Require returns models.ErrForbidden when Can(p) is false.
func (e Evaluator) Require(p Permission) error {
	if !e.Can(p) {
		return fmt.Errorf("%w: %s on project %d", models.ErrForbidden, p, e.project.ID)
	}
	return nil
}

// Granted lists every permission Can allows.
func (e Evaluator) Granted() []Permission {
	out := []Permission{}
	for _, p := range all {
		if e.Can(p) {
			out = append(out, p)
		}
	}
	return out
}
