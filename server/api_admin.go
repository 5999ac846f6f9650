package main

import (
	"net/http"

	"taskflow/server/identity"
	"taskflow/server/models"
	"taskflow/server/store"
)

// superAdmin protects h and requires an active super-admin.
func (a *api) superAdmin(h authedHandler) http.HandlerFunc {
	return a.protect(func(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
		if err := a.verifier.VerifySuperAdmin(user); err != nil {
			a.fail(w, r, err)
			return
		}
		h(w, r, user)
	})
}

func (a *api) handleListOrganizations(w http.ResponseWriter, r *http.Request, _ identity.CurrentUser) {
	d, err := listQuery(r, store.OrganizationListSchema())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.store.ListOrganizations(r.Context(), d)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, page)
}

func (a *api) handleCreateOrganization(w http.ResponseWriter, r *http.Request, _ identity.CurrentUser) {
	var req struct {
		Name string `json:"name" validate:"required,notblank,max=120"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	org, err := a.store.CreateOrganization(r.Context(), req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.log.Info("organization created", "organization", org.ID)
	writeJSON(w, 201, org)
}

func (a *api) handleGetOrganization(w http.ResponseWriter, r *http.Request, _ identity.CurrentUser) {
	p, err := pathParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	org, err := a.store.Organization(r.Context(), p.OrganizationID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, org)
}

func (a *api) handleSetOrganizationStatus(w http.ResponseWriter, r *http.Request, _ identity.CurrentUser) {
	p, err := pathParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Status models.OrganizationStatus `json:"status" validate:"required,oneof=ACTIVE SUSPENDED"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	org, err := a.store.SetOrganizationStatus(r.Context(), p.OrganizationID, req.Status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.log.Info("organization status changed", "organization", org.ID, "status", org.Status)
	writeJSON(w, 200, org)
}

func (a *api) handleListOrganizationAdmins(w http.ResponseWriter, r *http.Request, _ identity.CurrentUser) {
	d, err := listQuery(r, store.UserListSchema())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.store.Organization(r.Context(), d.Path.OrganizationID); err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.store.ListOrganizationAdmins(r.Context(), d.Path.OrganizationID, d)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, page)
}

// userRequest is the body for creating organization admins and employees.
type userRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,notblank,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (a *api) handleCreateOrganizationAdmin(w http.ResponseWriter, r *http.Request, _ identity.CurrentUser) {
	p, err := pathParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.store.Organization(r.Context(), p.OrganizationID); err != nil {
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
		Kind:           models.KindOrganizationAdmin,
		OrganizationID: &p.OrganizationID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 201, u)
}
