package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskflow/server/access"
	"taskflow/server/config"
	"taskflow/server/identity"
	"taskflow/server/models"
	"taskflow/server/query"
	"taskflow/server/schema"
	"taskflow/server/store"
)

type api struct {
	store    *store.Store
	auth     *identity.Authenticator
	resolver *identity.Resolver
	verifier *access.Verifier
	tokens   *identity.TokenIssuer
	bus      *EventBus
	log      *slog.Logger
	session  config.SessionConfig
	sameSite http.SameSite
}

func newAPI(st *store.Store, cfg *config.Config, log *slog.Logger) (*api, error) {
	sameSite, err := cfg.Session.SameSiteMode()
	if err != nil {
		return nil, err
	}
	tokens := identity.NewTokenIssuer([]byte(cfg.Auth.TokenSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	return &api{
		store:    st,
		auth:     identity.NewAuthenticator(tokens, st, cfg.Session.CookieName),
		resolver: identity.NewResolver(st),
		verifier: access.NewVerifier(st, log),
		tokens:   tokens,
		bus:      NewEventBus(),
		log:      log,
		session:  cfg.Session,
		sameSite: sameSite,
	}, nil
}

// authedHandler receives the resolved caller explicitly.
type authedHandler func(w http.ResponseWriter, r *http.Request, user identity.CurrentUser)

// protect authenticates the request and resolves the caller before running h.
// Banned users and members of suspended organizations are treated as missing.
func (a *api) protect(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := a.auth.Authenticate(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		user, err := a.resolver.Resolve(r.Context(), p)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if !user.Active() {
			a.fail(w, r, fmt.Errorf("%w: user %d is inactive", models.ErrNotFound, user.ID))
			return
		}
		h(w, r, user)
	}
}

// fail writes the response for err. Unclassified errors are logged and
// reported as a generic 500.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": ve.First(), "errors": ve.Errors})
	case errors.Is(err, models.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, models.ErrNotFound):
		a.log.Debug("not found", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathValues collects the route's id wildcards.
func pathValues(r *http.Request) url.Values {
	v := url.Values{}
	for _, key := range query.PathKeys() {
		if s := r.PathValue(key); s != "" {
			v.Set(key, s)
		}
	}
	return v
}

func pathParams(r *http.Request) (query.PathParams, error) {
	return query.ParsePath(pathValues(r))
}

// listQuery normalizes the query string, with ids from the route.
func listQuery(r *http.Request, s query.Schema) (query.Descriptor, error) {
	return query.Parse(r.URL.Query(), pathValues(r), s)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := readJSON(w, r, dst); err != nil {
		return models.NewValidationError("body", "Invalid JSON payload")
	}
	return schema.Validate(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func (a *api) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.session.Secure,
		SameSite: a.sameSite,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
	})
}

func (a *api) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.session.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.session.Secure,
		SameSite: a.sameSite,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskflow",
	Name:      "http_requests_total",
	Help:      "HTTP responses by route pattern and status code.",
}, []string{"route", "code"})

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

// Flush keeps SSE streaming working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
