package handlers

import (
	"net/http"

	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// AccountHandler provides administrator endpoints over accounts.
type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// AccountRouter registers the account list and delete routes.
func AccountRouter(r chi.Router, handler *AccountHandler) {
	r.Get("/", handler.List)
	r.Delete("/{id}", handler.Delete)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(h.accounts.Schema(), r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err, msgNotFound)
		return
	}

	result, err := h.accounts.List(r.Context(), IdentityFromContext(r.Context()), params)
	if err != nil {
		writeServiceError(w, r, err, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, query.NewPage(result, params, requestURL(r)))
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	if err := h.accounts.Delete(r.Context(), IdentityFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err, msgNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
