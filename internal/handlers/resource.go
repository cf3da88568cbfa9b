package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// ResourceHandler exposes a catalog over conventional REST routes.
type ResourceHandler[T services.Record[T]] struct {
	catalog  *services.Catalog[T]
	notFound string
}

// NewResourceHandler constructs a handler that answers misses with the
// generic not-found message.
func NewResourceHandler[T services.Record[T]](catalog *services.Catalog[T]) *ResourceHandler[T] {
	return &ResourceHandler[T]{catalog: catalog, notFound: msgNotFound}
}

// ResourceRouter registers collection and item routes for catalog. Each
// item function registers further routes below /{id}.
func ResourceRouter[T services.Record[T]](r chi.Router, catalog *services.Catalog[T], item ...func(chi.Router)) {
	handler := NewResourceHandler(catalog)

	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", handler.Retrieve)
		r.Put("/", handler.Replace)
		r.Patch("/", handler.PartialUpdate)
		r.Delete("/", handler.Delete)
		for _, register := range item {
			register(r)
		}
	})
}

func (h *ResourceHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(h.catalog.Schema(), r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}

	result, err := h.catalog.List(r.Context(), IdentityFromContext(r.Context()), params)
	if err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}
	writeJSON(w, http.StatusOK, query.NewPage(result, params, requestURL(r)))
}

func (h *ResourceHandler[T]) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, h.notFound)
		return
	}

	record, err := h.catalog.Retrieve(r.Context(), IdentityFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *ResourceHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	if err := h.catalog.Authorize(r.Method, ident); err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}

	var record T
	if err := decodeJSON(w, r, &record); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	created, err := h.catalog.Create(r.Context(), ident, record)
	if err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ResourceHandler[T]) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, h.notFound)
		return
	}
	ident := IdentityFromContext(r.Context())
	if err := h.catalog.Authorize(r.Method, ident); err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}

	var record T
	if err := decodeJSON(w, r, &record); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	updated, err := h.catalog.Replace(r.Context(), ident, id, record)
	if err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ResourceHandler[T]) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, h.notFound)
		return
	}
	ident := IdentityFromContext(r.Context())
	if err := h.catalog.Authorize(r.Method, ident); err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}

	body, err := readJSONBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	updated, err := h.catalog.PartialUpdate(r.Context(), ident, id, func(record *T) error {
		return json.Unmarshal(body, record)
	})
	if err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ResourceHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, h.notFound)
		return
	}

	if err := h.catalog.Delete(r.Context(), IdentityFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
