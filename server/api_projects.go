package main

import (
	"net/http"

	"taskflow/server/access"
	"taskflow/server/authz"
	"taskflow/server/identity"
	"taskflow/server/models"
	"taskflow/server/query"
	"taskflow/server/store"
)

// project parses the route ids, checks that user may see the route's project
// and, when perm is set, that user holds it there.
func (a *api) project(r *http.Request, user identity.CurrentUser, perm authz.Permission) (query.PathParams, access.ProjectAccess, error) {
	p, err := pathParams(r)
	if err != nil {
		return p, access.ProjectAccess{}, err
	}
	pa, err := a.verifier.VerifyProjectAccess(r.Context(), user, p.OrganizationID, p.ProjectID)
	if err != nil {
		return p, access.ProjectAccess{}, err
	}
	if perm != "" {
		if err := pa.Evaluator().Require(perm); err != nil {
			return p, access.ProjectAccess{}, err
		}
	}
	return p, pa, nil
}

func (a *api) publish(typ EventType, projectID int64, columnID *int64, payload any) {
	a.bus.Publish(NewEvent(typ, projectID, columnID, payload))
}

// handleListProjects lists every project to organization admins and the
// caller's own projects to employees.
func (a *api) handleListProjects(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := pathParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	orgID := p.OrganizationID
	if err := a.verifier.VerifyOrganizationMember(r.Context(), user, orgID); err != nil {
		a.fail(w, r, err)
		return
	}
	d, err := listQuery(r, store.ProjectListSchema())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var page models.Page[models.Project]
	if user.IsOrganizationAdmin() {
		page, err = a.store.ListProjects(r.Context(), orgID, d)
	} else {
		page, err = a.store.ListMemberProjects(r.Context(), orgID, user.ID, d)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, page)
}

func (a *api) handleCreateProject(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := a.orgAdmin(r, user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Name        string `json:"name" validate:"required,notblank,max=120"`
		Description string `json:"description" validate:"max=2000"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	project, err := a.store.CreateProject(r.Context(), p.OrganizationID, req.Name, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 201, project)
}

// projectView is a project together with what the caller may do in it.
type projectView struct {
	models.Project
	Permissions []authz.Permission `json:"permissions"`
}

func (a *api) handleGetProject(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	_, pa, err := a.project(r, user, "")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, projectView{Project: pa.Project, Permissions: pa.Evaluator().Granted()})
}

func (a *api) handleUpdateProject(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.ProjectEdit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Name        *string               `json:"name" validate:"omitempty,notblank,max=120"`
		Description *string               `json:"description" validate:"omitempty,max=2000"`
		Status      *models.ProjectStatus `json:"status" validate:"omitempty,oneof=ACTIVE ARCHIVED"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	project, err := a.store.UpdateProject(r.Context(), p.ProjectID, store.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(ProjectUpdated, project.ID, nil, project)
	writeJSON(w, 200, project)
}

func (a *api) handleProjectEvents(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, "")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.bus.ServeSSE(w, r, p.ProjectID)
}

func (a *api) handleListMembers(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.ProjectMemberView)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	d, err := listQuery(r, store.MemberListSchema())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.store.ListProjectMembers(r.Context(), p.ProjectID, d)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, page)
}

func (a *api) handleAddMember(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.ProjectMemberAdd)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		EmployeeID int64 `json:"employeeId" validate:"gt=0"`
		RoleID     int64 `json:"roleId" validate:"gt=0"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	employee, err := a.verifier.VerifyEmployeeIDValid(r.Context(), p.OrganizationID, req.EmployeeID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if employee.Status != models.UserActive {
		a.fail(w, r, models.NewValidationError("employeeId", "Employee is not active"))
		return
	}
	if _, err := a.verifier.VerifyRoleIDValid(r.Context(), p.OrganizationID, req.RoleID); err != nil {
		a.fail(w, r, err)
		return
	}
	member, err := a.store.AddProjectMember(r.Context(), p.ProjectID, req.EmployeeID, req.RoleID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(MemberAdded, p.ProjectID, nil, member)
	writeJSON(w, 201, member)
}

func (a *api) handleRemoveMember(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.ProjectMemberRemove)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.store.RemoveProjectMember(r.Context(), p.ProjectID, p.EmployeeID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(MemberRemoved, p.ProjectID, nil, map[string]int64{"userId": p.EmployeeID})
	w.WriteHeader(204)
}
