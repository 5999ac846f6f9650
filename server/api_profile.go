package main

import (
	"net/http"

	"taskflow/server/identity"
)

// handleUpdateMe updates the caller's display name.
func (a *api) handleUpdateMe(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	var req struct {
		Name string `json:"name" validate:"required,notblank,max=120"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.store.UpdateUserName(r.Context(), user.ID, req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "user": u})
}
