package main

import (
	"net/http"

	"taskflow/server/authz"
	"taskflow/server/identity"
	"taskflow/server/store"
)

type columnRequest struct {
	Title string `json:"title" validate:"required,notblank,max=80"`
}

type moveRequest struct {
	Index int `json:"index" validate:"gte=0"`
}

func (a *api) handleListColumns(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.ProjectView)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	d, err := listQuery(r, store.ColumnListSchema())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.store.ListColumns(r.Context(), p.ProjectID, d)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, page)
}

func (a *api) handleCreateColumn(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.TicketColumnCreate)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req columnRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.store.CreateColumn(r.Context(), p.ProjectID, req.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(ColumnCreated, p.ProjectID, &c.ID, c)
	writeJSON(w, 201, c)
}

func (a *api) handleRenameColumn(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.TicketColumnEdit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req columnRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.store.RenameColumn(r.Context(), p.ProjectID, p.ColumnID, req.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(ColumnUpdated, p.ProjectID, &c.ID, c)
	writeJSON(w, 200, c)
}

// handleDeleteColumn deletes the column together with its tickets.
func (a *api) handleDeleteColumn(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.TicketColumnDelete)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.store.DeleteColumn(r.Context(), p.ProjectID, p.ColumnID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(ColumnDeleted, p.ProjectID, &p.ColumnID, nil)
	w.WriteHeader(204)
}

func (a *api) handleMoveColumn(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.TicketColumnEdit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req moveRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.store.MoveColumn(r.Context(), p.ProjectID, p.ColumnID, req.Index); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.store.Column(r.Context(), p.ProjectID, p.ColumnID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(ColumnMoved, p.ProjectID, &c.ID, c)
	writeJSON(w, 200, c)
}
