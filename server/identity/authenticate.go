package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"taskflow/server/models"
)

const (
	MethodBearer  = "bearer"
	MethodSession = "session"
)

// SessionSource maps session cookies to user IDs. The store implements it.
type SessionSource interface {
	UserIDBySession(ctx context.Context, token string) (int64, error)
}

// Authenticator extracts the principal from a request. It fails closed.
type Authenticator struct {
	tokens     *TokenIssuer
	sessions   SessionSource
	cookieName string
}

func NewAuthenticator(tokens *TokenIssuer, sessions SessionSource, cookieName string) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, cookieName: cookieName}
}

// Authenticate returns the request principal. A bearer token takes precedence
// over the session cookie; a malformed bearer header is rejected rather than
// falling back to the cookie.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return Principal{}, models.ErrUnauthenticated
		}
		id, err := a.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			return Principal{}, models.ErrUnauthenticated
		}
		return Principal{UserID: id, Method: MethodBearer}, nil
	}
	c, err := r.Cookie(a.cookieName)
	if err != nil || c.Value == "" || a.sessions == nil {
		return Principal{}, models.ErrUnauthenticated
	}
	id, err := a.sessions.UserIDBySession(r.Context(), c.Value)
	if errors.Is(err, models.ErrNotFound) {
		return Principal{}, models.ErrUnauthenticated
	}
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: id, Method: MethodSession}, nil
}
