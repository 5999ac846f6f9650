package main

import (
	"net/http"

	"taskflow/server/authz"
	"taskflow/server/identity"
	"taskflow/server/models"
	"taskflow/server/query"
	"taskflow/server/store"
)

// orgAdmin parses the route ids and checks that user administers the
// route's organization.
func (a *api) orgAdmin(r *http.Request, user identity.CurrentUser) (query.PathParams, error) {
	p, err := pathParams(r)
	if err != nil {
		return p, err
	}
	return p, a.verifier.VerifyOrganizationAdminAccess(r.Context(), user, p.OrganizationID)
}

func (a *api) handleListEmployees(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := a.orgAdmin(r, user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	d, err := listQuery(r, store.UserListSchema())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.store.ListEmployees(r.Context(), p.OrganizationID, d)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, page)
}

func (a *api) handleCreateEmployee(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := a.orgAdmin(r, user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req userRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.store.CreateUser(r.Context(), store.NewUser{
		Email:          req.Email,
		Name:           req.Name,
		Password:       req.Password,
		Kind:           models.KindEmployee,
		OrganizationID: &p.OrganizationID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 201, u)
}

func (a *api) handleGetEmployee(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := a.orgAdmin(r, user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.verifier.VerifyEmployeeIDValid(r.Context(), p.OrganizationID, p.EmployeeID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, u)
}

// handleBanEmployee bans the employee, which also ends their sessions.
func (a *api) handleBanEmployee(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := a.orgAdmin(r, user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.verifier.VerifyEmployeeIDValid(r.Context(), p.OrganizationID, p.EmployeeID); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.store.SetUserStatus(r.Context(), p.EmployeeID, models.UserBanned); err != nil {
		a.fail(w, r, err)
		return
	}
	a.log.Info("employee banned", "organization", p.OrganizationID, "employee", p.EmployeeID, "by", user.ID)
	w.WriteHeader(204)
}

func (a *api) handleListRoles(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := a.orgAdmin(r, user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	d, err := listQuery(r, store.RoleListSchema())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.store.ListRoles(r.Context(), p.OrganizationID, d)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, page)
}

func (a *api) handleCreateRole(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := a.orgAdmin(r, user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Name        string   `json:"name" validate:"required,notblank,max=80"`
		Permissions []string `json:"permissions" validate:"required,min=1,dive,permission"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	codes := make([]string, 0, len(req.Permissions))
	for _, s := range req.Permissions {
		perm, _ := authz.ParsePermission(s)
		codes = append(codes, string(perm))
	}
	role, err := a.store.CreateRole(r.Context(), &p.OrganizationID, req.Name, codes)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 201, role)
}

func (a *api) handleGetRole(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, err := a.orgAdmin(r, user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	role, err := a.verifier.VerifyRoleIDValid(r.Context(), p.OrganizationID, p.RoleID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, role)
}
