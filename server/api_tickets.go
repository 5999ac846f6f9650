package main

import (
	"context"
	"errors"
	"net/http"

	"taskflow/server/authz"
	"taskflow/server/identity"
	"taskflow/server/models"
	"taskflow/server/store"
)

// checkAssignee requires assigneeID to be an active member of the project.
func (a *api) checkAssignee(ctx context.Context, projectID, assigneeID int64) error {
	m, err := a.store.ProjectMember(ctx, projectID, assigneeID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && m.Status != models.MemberActive) {
		return models.NewValidationError("assigneeId", "Assignee is not a member of this project")
	}
	return err
}

func (a *api) handleListTickets(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.ProjectView)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	d, err := listQuery(r, store.TicketListSchema())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.store.ListTickets(r.Context(), p.ProjectID, d)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, page)
}

func (a *api) handleCreateTicket(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.TicketCreate)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		ColumnID    int64  `json:"columnId" validate:"gt=0"`
		Title       string `json:"title" validate:"required,notblank,max=200"`
		Description string `json:"description" validate:"max=10000"`
		AssigneeID  *int64 `json:"assigneeId" validate:"omitempty,gt=0"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.AssigneeID != nil {
		if err := a.checkAssignee(r.Context(), p.ProjectID, *req.AssigneeID); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	t, err := a.store.CreateTicket(r.Context(), store.NewTicket{
		ProjectID:   p.ProjectID,
		ColumnID:    req.ColumnID,
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   user.ID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(TicketCreated, p.ProjectID, &t.ColumnID, t)
	writeJSON(w, 201, t)
}

func (a *api) handleGetTicket(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.ProjectView)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	t, err := a.store.Ticket(r.Context(), p.ProjectID, p.TicketID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, t)
}

func (a *api) handleUpdateTicket(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.TicketEdit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
		Description *string `json:"description" validate:"omitempty,max=10000"`
		// AssigneeID 0 unassigns the ticket.
		AssigneeID *int64 `json:"assigneeId" validate:"omitempty,gte=0"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.AssigneeID != nil && *req.AssigneeID > 0 {
		if err := a.checkAssignee(r.Context(), p.ProjectID, *req.AssigneeID); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	t, err := a.store.UpdateTicket(r.Context(), p.ProjectID, p.TicketID, store.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(TicketUpdated, p.ProjectID, &t.ColumnID, t)
	writeJSON(w, 200, t)
}

func (a *api) handleDeleteTicket(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.TicketDelete)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.store.DeleteTicket(r.Context(), p.ProjectID, p.TicketID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(TicketDeleted, p.ProjectID, nil, map[string]int64{"id": p.TicketID})
	w.WriteHeader(204)
}

// handleMoveTicket moves a ticket to index within columnId, which may be its
// current column.
func (a *api) handleMoveTicket(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	p, _, err := a.project(r, user, authz.TicketEdit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		ColumnID int64 `json:"columnId" validate:"gt=0"`
		Index    int   `json:"index" validate:"gte=0"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	t, err := a.store.MoveTicket(r.Context(), p.ProjectID, p.TicketID, req.ColumnID, req.Index)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.publish(TicketMoved, p.ProjectID, &t.ColumnID, t)
	writeJSON(w, 200, t)
}
