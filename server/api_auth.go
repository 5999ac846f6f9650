package main

import (
	"errors"
	"net/http"

	"taskflow/server/identity"
	"taskflow/server/models"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// handleLogin starts a cookie session and also returns a bearer token for API
// clients. Banned users and members of suspended organizations cannot log in.
func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.store.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, 401, "invalid credentials")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.resolver.Resolve(r.Context(), identity.Principal{UserID: u.ID, Method: identity.MethodSession})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !user.Active() {
		a.log.Info("inactive user login refused", "user", user.ID)
		writeError(w, 401, "invalid credentials")
		return
	}

	session, expires, err := a.store.CreateSession(r.Context(), u.ID, a.session.TTL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	token, tokenExpires, err := a.tokens.Issue(u.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.setSessionCookie(w, session, expires)
	writeJSON(w, 200, map[string]any{
		"ok":             true,
		"user":           user,
		"accessToken":    token,
		"tokenExpiresAt": tokenExpires,
	})
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(a.session.CookieName); err == nil && c.Value != "" {
		if err := a.store.DeleteSession(r.Context(), c.Value); err != nil {
			a.log.Warn("delete session", "err", err)
		}
	}
	a.clearSessionCookie(w)
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request, user identity.CurrentUser) {
	writeJSON(w, 200, map[string]any{"user": user})
}
