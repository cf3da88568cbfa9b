package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coursehub/apiserver/internal/access"
	"github.com/coursehub/apiserver/internal/observability"
	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	maxJSONBodyBytes = 1 << 20

	msgNotFound        = "not found"
	msgNotPermitted    = "not permitted"
	msgUnauthorized    = "unauthorized"
	msgInvalidRequest  = "invalid request body"
	msgValidation      = "validation failed"
	msgInternal        = "internal server error"
	msgStorageDisabled = "recording storage is not configured"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func withIdentity(ctx context.Context, ident access.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, ident)
}

// IdentityFromContext returns the caller identity set by Identify, or the
// anonymous identity.
func IdentityFromContext(ctx context.Context) access.Identity {
	if ident, ok := ctx.Value(contextIdentityKey).(access.Identity); ok {
		return ident
	}
	return access.AnonymousIdentity
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service error to a response. notFound is the
// message used when the record does not exist.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var (
		verr *services.ValidationError
		perr *query.ParamError
	)
	switch {
	case errors.Is(err, access.ErrDenied):
		writeError(w, http.StatusForbidden, msgNotPermitted)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgValidation, Fields: verr.Fields})
	case errors.As(err, &perr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  msgValidation,
			Fields: map[string]string{perr.Param: perr.Reason},
		})
	case errors.Is(err, services.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgStorageDisabled)
	default:
		observability.LoggerFromContext(r.Context()).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readJSONBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errors.New("empty body")
	}
	return body, nil
}

// pathID parses the id URL parameter. ok is false when the parameter is
// absent or is not a positive integer.
func pathID(r *http.Request) (int, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// requestURL reconstructs the absolute URL of r for pagination links.
func requestURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
}
