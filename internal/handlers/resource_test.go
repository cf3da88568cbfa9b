package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coursehub/apiserver/internal/access"
	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminIdentity = access.Identity{AccountID: 1, Role: access.Admin}
	userIdentity  = access.Identity{AccountID: 2, Role: access.Authenticated}
)

func seedCourses(n int) []types.Course {
	names := []string{"Algebra", "Biology", "Chemistry", "Drawing", "English", "French", "Geometry", "History", "Informatics", "Japanese"}
	courses := make([]types.Course, 0, n)
	for i := 0; i < n; i++ {
		courses = append(courses, types.Course{Name: names[i%len(names)], Author: "Ivanov"})
	}
	return courses
}

func newCourseCatalog(n int) *services.Catalog[types.Course] {
	repo := newMemoryRepo(store.CourseSchema, seedCourses(n)...)
	return services.NewCatalog[types.Course]("courses", access.OpenRead, repo, nil, nil)
}

// newCatalogRouter mounts the generic and manual course adapters over one
// catalog. The identity of every request is taken from ident.
func newCatalogRouter(courses *services.Catalog[types.Course], ident *access.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), *ident)))
		})
	})
	r.Route("/courses", func(r chi.Router) {
		ResourceRouter(r, courses)
	})
	r.Route("/course", func(r chi.Router) {
		CourseRouter(r, NewCourseEndpoint(courses))
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestResourceListPaginates(t *testing.T) {
	ident := access.AnonymousIdentity
	router := newCatalogRouter(newCourseCatalog(10), &ident)

	rec := do(t, router, http.MethodGet, "/courses/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page query.Page[types.Course]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 10, page.Count)
	assert.Len(t, page.Results, query.DefaultPageSize)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/courses/?page=2", *page.Next)
	assert.Nil(t, page.Previous)

	rec = do(t, router, http.MethodGet, "/courses/?page=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = query.Page[types.Course]{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Results, 1)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/courses/?page=3", *page.Previous)
}

func TestResourceListRejectsUnknownFilter(t *testing.T) {
	ident := access.AnonymousIdentity
	router := newCatalogRouter(newCourseCatalog(1), &ident)

	rec := do(t, router, http.MethodGet, "/courses/?colour=red", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, msgValidation, resp.Error)
	assert.Contains(t, resp.Fields, "colour")
}

func TestResourceOpenReadPolicy(t *testing.T) {
	ident := access.AnonymousIdentity
	router := newCatalogRouter(newCourseCatalog(1), &ident)

	rec := do(t, router, http.MethodGet, "/courses/1/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/courses/", `{"name":"Rust","author":"Hoare"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, msgNotPermitted, decodeError(t, rec).Error)

	ident = userIdentity
	rec = do(t, router, http.MethodDelete, "/courses/1/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ident = adminIdentity
	rec = do(t, router, http.MethodPost, "/courses/", `{"name":"Rust","author":"Hoare"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created types.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 2, created.ID)
	assert.Equal(t, "Rust", created.Name)
}

func TestResourceDeniesBeforeDecodingBody(t *testing.T) {
	ident := access.AnonymousIdentity
	router := newCatalogRouter(newCourseCatalog(1), &ident)

	rec := do(t, router, http.MethodPut, "/courses/1/", `not json`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResourceValidationErrors(t *testing.T) {
	ident := adminIdentity
	router := newCatalogRouter(newCourseCatalog(1), &ident)

	rec := do(t, router, http.MethodPost, "/courses/", `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "this field is required", resp.Fields["name"])
	assert.Equal(t, "this field is required", resp.Fields["author"])

	rec = do(t, router, http.MethodPost, "/courses/", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidRequest, decodeError(t, rec).Error)
}

func TestResourceReplacePatchDelete(t *testing.T) {
	ident := adminIdentity
	router := newCatalogRouter(newCourseCatalog(1), &ident)

	rec := do(t, router, http.MethodPut, "/courses/1/", `{"id":9,"name":"Algebra II","author":"Petrov"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var course types.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &course))
	assert.Equal(t, 1, course.ID)
	assert.Equal(t, "Petrov", course.Author)

	rec = do(t, router, http.MethodPatch, "/courses/1/", `{"description":"For beginners"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	course = types.Course{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &course))
	assert.Equal(t, "Algebra II", course.Name)
	require.NotNil(t, course.Description)
	assert.Equal(t, "For beginners", *course.Description)

	rec = do(t, router, http.MethodPatch, "/courses/1/", `{"name":42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/courses/1/", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, router, http.MethodDelete, "/courses/1/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenericNotFoundMessage(t *testing.T) {
	ident := access.AnonymousIdentity
	router := newCatalogRouter(newCourseCatalog(1), &ident)

	for _, target := range []string{"/courses/99/", "/courses/abc/"} {
		rec := do(t, router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, msgNotFound, decodeError(t, rec).Error, target)
	}
}
