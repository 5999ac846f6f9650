package main

import (
	"net/http"
)

const (
	orgPrefix     = "/api/organizations/{organizationId}"
	projectPrefix = orgPrefix + "/projects/{projectId}"
)

// routes registers the API. limitLogin wraps the login handler.
func (a *api) routes(mux *http.ServeMux, limitLogin func(http.Handler) http.Handler) {
	mux.Handle("POST /api/auth/login", limitLogin(http.HandlerFunc(a.handleLogin)))
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/me", a.protect(a.handleMe))
	mux.HandleFunc("PATCH /api/auth/me", a.protect(a.handleUpdateMe))
	mux.HandleFunc("GET /api/health", a.handleHealth)

	// Super-admin
	mux.HandleFunc("GET /api/admin/organizations", a.superAdmin(a.handleListOrganizations))
	mux.HandleFunc("POST /api/admin/organizations", a.superAdmin(a.handleCreateOrganization))
	mux.HandleFunc("GET /api/admin/organizations/{organizationId}", a.superAdmin(a.handleGetOrganization))
	mux.HandleFunc("PATCH /api/admin/organizations/{organizationId}/status", a.superAdmin(a.handleSetOrganizationStatus))
	mux.HandleFunc("GET /api/admin/organizations/{organizationId}/admins", a.superAdmin(a.handleListOrganizationAdmins))
	mux.HandleFunc("POST /api/admin/organizations/{organizationId}/admins", a.superAdmin(a.handleCreateOrganizationAdmin))

	// Organization admin
	mux.HandleFunc("GET "+orgPrefix+"/employees", a.protect(a.handleListEmployees))
	mux.HandleFunc("POST "+orgPrefix+"/employees", a.protect(a.handleCreateEmployee))
	mux.HandleFunc("GET "+orgPrefix+"/employees/{employeeId}", a.protect(a.handleGetEmployee))
	mux.HandleFunc("DELETE "+orgPrefix+"/employees/{employeeId}", a.protect(a.handleBanEmployee))
	mux.HandleFunc("GET "+orgPrefix+"/roles", a.protect(a.handleListRoles))
	mux.HandleFunc("POST "+orgPrefix+"/roles", a.protect(a.handleCreateRole))
	mux.HandleFunc("GET "+orgPrefix+"/roles/{roleId}", a.protect(a.handleGetRole))

	// Projects
	mux.HandleFunc("GET "+orgPrefix+"/projects", a.protect(a.handleListProjects))
	mux.HandleFunc("POST "+orgPrefix+"/projects", a.protect(a.handleCreateProject))
	mux.HandleFunc("GET "+projectPrefix, a.protect(a.handleGetProject))
	mux.HandleFunc("PATCH "+projectPrefix, a.protect(a.handleUpdateProject))
	mux.HandleFunc("GET "+projectPrefix+"/events", a.protect(a.handleProjectEvents))
	mux.HandleFunc("GET "+projectPrefix+"/members", a.protect(a.handleListMembers))
	mux.HandleFunc("POST "+projectPrefix+"/members", a.protect(a.handleAddMember))
	mux.HandleFunc("DELETE "+projectPrefix+"/members/{employeeId}", a.protect(a.handleRemoveMember))

	// Columns
	mux.HandleFunc("GET "+projectPrefix+"/columns", a.protect(a.handleListColumns))
	mux.HandleFunc("POST "+projectPrefix+"/columns", a.protect(a.handleCreateColumn))
	mux.HandleFunc("PATCH "+projectPrefix+"/columns/{columnId}", a.protect(a.handleRenameColumn))
	mux.HandleFunc("DELETE "+projectPrefix+"/columns/{columnId}", a.protect(a.handleDeleteColumn))
	mux.HandleFunc("POST "+projectPrefix+"/columns/{columnId}/move", a.protect(a.handleMoveColumn))

	// Tickets
	mux.HandleFunc("GET "+projectPrefix+"/tickets", a.protect(a.handleListTickets))
	mux.HandleFunc("POST "+projectPrefix+"/tickets", a.protect(a.handleCreateTicket))
	mux.HandleFunc("GET "+projectPrefix+"/tickets/{ticketId}", a.protect(a.handleGetTicket))
	mux.HandleFunc("PATCH "+projectPrefix+"/tickets/{ticketId}", a.protect(a.handleUpdateTicket))
	mux.HandleFunc("DELETE "+projectPrefix+"/tickets/{ticketId}", a.protect(a.handleDeleteTicket))
	mux.HandleFunc("POST "+projectPrefix+"/tickets/{ticketId}/move", a.protect(a.handleMoveTicket))
}
