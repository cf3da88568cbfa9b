package handlers

import (
	"net/http"
	"strings"

	"github.com/coursehub/apiserver/internal/access"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const msgCourseNotFound = "Курс не найден"

var (
	courseCollectionMethods = []string{http.MethodGet, http.MethodPost}
	courseItemMethods       = []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete}
)

// CourseEndpoint serves courses at a single path and dispatches on the
// request method itself. It runs under the graduated policy and reports
// misses with a course-specific message.
type CourseEndpoint struct {
	courses *ResourceHandler[types.Course]
}

func NewCourseEndpoint(courses *services.Catalog[types.Course]) *CourseEndpoint {
	return &CourseEndpoint{
		courses: &ResourceHandler[types.Course]{
			catalog:  courses.WithVariant(access.Graduated),
			notFound: msgCourseNotFound,
		},
	}
}

// CourseRouter registers the endpoint at the collection and item paths.
func CourseRouter(r chi.Router, endpoint *CourseEndpoint) {
	r.Handle("/", endpoint)
	r.Handle("/{id}", endpoint)
}

func (e *CourseEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "id") == "" {
		e.serveCollection(w, r)
		return
	}
	e.serveItem(w, r)
}

func (e *CourseEndpoint) serveCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		e.courses.List(w, r)
	case http.MethodPost:
		e.courses.Create(w, r)
	default:
		methodNotAllowed(w, courseCollectionMethods)
	}
}

func (e *CourseEndpoint) serveItem(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		e.courses.Retrieve(w, r)
	case http.MethodPut:
		e.courses.Replace(w, r)
	case http.MethodPatch:
		e.courses.PartialUpdate(w, r)
	case http.MethodDelete:
		e.courses.Delete(w, r)
	default:
		methodNotAllowed(w, courseItemMethods)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed []string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
