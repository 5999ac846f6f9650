// Package action executes mutations against the TaskFlow REST API and folds
// every outcome into a typed Result. Nothing is retried and nothing panics
// out of Execute.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskflow/server/identity"
	"taskflow/server/models"
	"taskflow/server/schema"
)

type Code string

const (
	CodeDefault    Code = "DEFAULT"
	CodeForbidden  Code = "FORBIDDEN"
	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "SERVER_VALIDATION_ERROR"
)

// Error is the failure half of a Result. Details is set only for validation
// failures and is safe to show to a user.
type Error struct {
	Code    Code   `json:"code"`
	Details string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return string(e.Code) + ": " + e.Details
	}
	return string(e.Code)
}

type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   *Error `json:"error,omitempty"`
}

// Err returns the failure as an error, or nil on success.
func (r Result[T]) Err() error {
	if r.Success || r.Error == nil {
		return nil
	}
	return r.Error
}

// Action describes one API call. Path builds the request path from the
// input; Body, when set, produces the JSON request body; Map turns a 2xx
// response body into the output and defaults to JSON decoding.
type Action[In, Out any] struct {
	Name   string
	Method string
	Path   func(In) string
	Body   func(In) any
	Map    func([]byte) (Out, error)
}

var results = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskflow",
	Name:      "action_results_total",
	Help:      "Server action outcomes by action and result code.",
}, []string{"action", "code"})

const maxBody = 1 << 20

type Gateway struct {
	baseURL string
	client  *http.Client
	tokens  identity.TokenSource
	log     *slog.Logger
}

func NewGateway(baseURL string, client *http.Client, tokens identity.TokenSource, log *slog.Logger) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		tokens:  tokens,
		log:     log,
	}
}

// FromError classifies err into the action error taxonomy.
func FromError(err error) *Error {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return &Error{Code: CodeValidation, Details: ve.First()}
	case errors.Is(err, models.ErrNotFound):
		return &Error{Code: CodeNotFound}
	case errors.Is(err, models.ErrForbidden):
		return &Error{Code: CodeForbidden}
	default:
		return &Error{Code: CodeDefault}
	}
}

func ok[Out any](name string, out Out) Result[Out] {
	results.WithLabelValues(name, "OK").Inc()
	return Result[Out]{Success: true, Data: out}
}

func fail[Out any](name string, e *Error) Result[Out] {
	results.WithLabelValues(name, string(e.Code)).Inc()
	return Result[Out]{Error: e}
}

// Execute runs a against the gateway's API with input in.
func Execute[In, Out any](ctx context.Context, g *Gateway, a Action[In, Out], in In) (res Result[Out]) {
	log := g.log.With("action", a.Name)
	defer func() {
		if r := recover(); r != nil {
			log.Error("action panicked", "panic", r)
			res = fail[Out](a.Name, &Error{Code: CodeDefault})
		}
	}()

	if err := schema.Validate(in); err != nil {
		var inv *validator.InvalidValidationError
		if !errors.As(err, &inv) {
			log.Warn("action input rejected", "err", err)
			return fail[Out](a.Name, &Error{Code: CodeDefault})
		}
	}

	token, err := g.tokens.Token(ctx)
	if err != nil {
		log.Error("action token", "err", err)
		return fail[Out](a.Name, &Error{Code: CodeDefault})
	}

	req, err := g.newRequest(ctx, a.Method, a.Path(in), body(a, in))
	if err != nil {
		log.Error("action request", "err", err)
		return fail[Out](a.Name, &Error{Code: CodeDefault})
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		log.Error("action transport", "err", err)
		return fail[Out](a.Name, &Error{Code: CodeDefault})
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		log.Error("action read body", "err", err, "status", resp.StatusCode)
		return fail[Out](a.Name, &Error{Code: CodeDefault})
	}
	log.Debug("action response", "status", resp.StatusCode, "dur", time.Since(start), "request_id", req.Header.Get("X-Request-Id"))

	switch {
	case resp.StatusCode == http.StatusNoContent:
		var zero Out
		return ok(a.Name, zero)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		out, err := mapBody(a, raw)
		if err != nil {
			log.Error("action map response", "err", err)
			return fail[Out](a.Name, FromError(err))
		}
		return ok(a.Name, out)
	case resp.StatusCode == http.StatusNotFound:
		return fail[Out](a.Name, &Error{Code: CodeNotFound})
	}

	var payload struct {
		Errors []models.FieldError `json:"errors"`
	}
	if json.Unmarshal(raw, &payload) == nil && len(payload.Errors) > 0 {
		return fail[Out](a.Name, &Error{Code: CodeValidation, Details: payload.Errors[0].Message})
	}
	log.Error("action failed", "status", resp.StatusCode)
	return fail[Out](a.Name, &Error{Code: CodeDefault})
}

func body[In, Out any](a Action[In, Out], in In) any {
	if a.Body == nil {
		return nil
	}
	return a.Body(in)
}

func mapBody[In, Out any](a Action[In, Out], raw []byte) (Out, error) {
	if a.Map != nil {
		return a.Map(raw)
	}
	var out Out
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}
