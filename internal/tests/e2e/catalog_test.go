//go:build e2e

package e2e

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func createCourse(t *testing.T, token, name string) course {
	t.Helper()
	resp := call(t, http.MethodPost, "/courses/", token, map[string]any{
		"name":   name,
		"author": "Ivanov",
	})
	expectStatus(t, resp, http.StatusCreated)
	var created course
	resp.decode(t, &created)
	return created
}

func TestOpenReadPolicyOverHTTP(t *testing.T) {
	resetDatabase(t)
	admin := login(t, adminUsername, adminPassword)
	user := login(t, userUsername, userPassword)

	created := createCourse(t, admin, "Algebra")
	item := fmt.Sprintf("/courses/%d/", created.ID)
	payload := map[string]any{"name": "Algebra", "author": "Petrov"}

	expectStatus(t, call(t, http.MethodGet, "/courses/", "", nil), http.StatusOK)
	expectStatus(t, call(t, http.MethodGet, item, "", nil), http.StatusOK)
	expectStatus(t, call(t, http.MethodPost, "/courses/", "", payload), http.StatusForbidden)
	expectStatus(t, call(t, http.MethodPost, "/courses/", user, payload), http.StatusForbidden)
	expectStatus(t, call(t, http.MethodPut, item, user, payload), http.StatusForbidden)
	expectStatus(t, call(t, http.MethodDelete, item, user, nil), http.StatusForbidden)

	expectStatus(t, call(t, http.MethodPut, item, admin, payload), http.StatusOK)
	expectStatus(t, call(t, http.MethodPatch, item, admin, map[string]any{"description": "Intro"}), http.StatusOK)
	expectStatus(t, call(t, http.MethodDelete, item, admin, nil), http.StatusNoContent)
	expectStatus(t, call(t, http.MethodGet, item, "", nil), http.StatusNotFound)
}

func TestGraduatedPolicyOverHTTP(t *testing.T) {
	resetDatabase(t)
	admin := login(t, adminUsername, adminPassword)
	user := login(t, userUsername, userPassword)
	algebra := createCourse(t, admin, "Algebra")

	review := map[string]any{"course": algebra.ID, "user": 2, "text": "Great", "rate": 9}

	expectStatus(t, call(t, http.MethodGet, "/reviews/", "", nil), http.StatusOK)
	expectStatus(t, call(t, http.MethodPost, "/reviews/", "", review), http.StatusForbidden)

	resp := call(t, http.MethodPost, "/reviews/", user, review)
	expectStatus(t, resp, http.StatusCreated)
	var created struct {
		ID int `json:"id"`
	}
	resp.decode(t, &created)
	item := fmt.Sprintf("/reviews/%d/", created.ID)

	expectStatus(t, call(t, http.MethodGet, item, user, nil), http.StatusOK)
	expectStatus(t, call(t, http.MethodPatch, item, user, map[string]any{"rate": 1}), http.StatusForbidden)
	expectStatus(t, call(t, http.MethodDelete, item, user, nil), http.StatusForbidden)
	expectStatus(t, call(t, http.MethodDelete, item, admin, nil), http.StatusNoContent)
}

func TestPaginationOverTenCourses(t *testing.T) {
	resetDatabase(t)
	admin := login(t, adminUsername, adminPassword)
	for i := 1; i <= 10; i++ {
		createCourse(t, admin, fmt.Sprintf("Course %02d", i))
	}

	var first page[course]
	resp := call(t, http.MethodGet, "/courses/", "", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.decode(t, &first)
	if first.Count != 10 || len(first.Results) != 3 {
		t.Fatalf("unexpected first page: count=%d results=%d", first.Count, len(first.Results))
	}
	if first.Next == nil || !strings.HasSuffix(*first.Next, "/courses/?page=2") {
		t.Fatalf("unexpected next link: %v", first.Next)
	}
	if first.Previous != nil {
		t.Fatalf("expected no previous link, got %s", *first.Previous)
	}

	var last page[course]
	resp = call(t, http.MethodGet, "/courses/?page=4", "", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.decode(t, &last)
	if len(last.Results) != 1 || last.Results[0].Name != "Course 10" || last.Next != nil {
		t.Fatalf("unexpected last page: %+v", last)
	}

	var beyond page[course]
	resp = call(t, http.MethodGet, "/courses/?page=5", "", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.decode(t, &beyond)
	if len(beyond.Results) != 0 || beyond.Count != 10 {
		t.Fatalf("unexpected page beyond the end: %+v", beyond)
	}

	var sized page[course]
	resp = call(t, http.MethodGet, "/courses/?page_size=20&ordering=-id", "", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.decode(t, &sized)
	if len(sized.Results) != 10 || sized.Results[0].Name != "Course 10" {
		t.Fatalf("unexpected ordered page: %+v", sized)
	}
}

func TestSearchAndFilter(t *testing.T) {
	resetDatabase(t)
	admin := login(t, adminUsername, adminPassword)
	for _, name := range []string{"Algebra", "Biology", "Algorithms", "Geometry"} {
		createCourse(t, admin, name)
	}

	var found page[course]
	resp := call(t, http.MethodGet, "/courses/?search=alg", "", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.decode(t, &found)
	if found.Count != 2 || found.Results[0].Name != "Algebra" || found.Results[1].Name != "Algorithms" {
		t.Fatalf("unexpected search results: %+v", found)
	}

	var filtered page[course]
	resp = call(t, http.MethodGet, "/courses/?name=Biology", "", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.decode(t, &filtered)
	if filtered.Count != 1 || filtered.Results[0].Name != "Biology" {
		t.Fatalf("unexpected filter results: %+v", filtered)
	}

	expectStatus(t, call(t, http.MethodGet, "/courses/?colour=red", "", nil), http.StatusBadRequest)
}

func TestDuplicateCourseName(t *testing.T) {
	resetDatabase(t)
	admin := login(t, adminUsername, adminPassword)
	createCourse(t, admin, "Algebra")

	resp := call(t, http.MethodPost, "/courses/", admin, map[string]any{"name": "Algebra", "author": "Petrov"})
	expectStatus(t, resp, http.StatusBadRequest)
	var body errorBody
	resp.decode(t, &body)
	if body.Fields["name"] == "" {
		t.Fatalf("expected a name error, got %s", string(resp.Body))
	}
}

func TestReviewRateBounds(t *testing.T) {
	resetDatabase(t)
	admin := login(t, adminUsername, adminPassword)
	algebra := createCourse(t, admin, "Algebra")

	for rate, want := range map[int]int{0: http.StatusCreated, 10: http.StatusCreated, 11: http.StatusBadRequest} {
		resp := call(t, http.MethodPost, "/reviews/", admin, map[string]any{
			"course": algebra.ID,
			"user":   1,
			"rate":   rate,
		})
		expectStatus(t, resp, want)
	}
}

func TestNotFoundMessages(t *testing.T) {
	resetDatabase(t)

	resp := call(t, http.MethodGet, "/courses/999/", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
	var generic errorBody
	resp.decode(t, &generic)
	if generic.Error != "not found" {
		t.Fatalf("unexpected generic message %q", generic.Error)
	}

	resp = call(t, http.MethodGet, "/course/999/", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
	var domain errorBody
	resp.decode(t, &domain)
	if domain.Error != "Курс не найден" {
		t.Fatalf("unexpected domain message %q", domain.Error)
	}
}

func TestCascadeDeletes(t *testing.T) {
	resetDatabase(t)
	admin := login(t, adminUsername, adminPassword)
	algebra := createCourse(t, admin, "Algebra")
	biology := createCourse(t, admin, "Biology")

	expectStatus(t, call(t, http.MethodPost, "/reviews/", admin, map[string]any{
		"course": algebra.ID, "user": 2, "rate": 5,
	}), http.StatusCreated)
	expectStatus(t, call(t, http.MethodPost, "/categories/", admin, map[string]any{
		"name": "Science", "course": []int{algebra.ID, biology.ID},
	}), http.StatusCreated)
	expectStatus(t, call(t, http.MethodPost, "/profiles/", admin, map[string]any{
		"name": "Student", "teacher": "Ivanov", "user": 2,
	}), http.StatusCreated)

	expectStatus(t, call(t, http.MethodDelete, fmt.Sprintf("/courses/%d/", algebra.ID), admin, nil), http.StatusNoContent)

	var reviews page[struct{ ID int }]
	resp := call(t, http.MethodGet, "/reviews/", "", nil)
	resp.decode(t, &reviews)
	if reviews.Count != 0 {
		t.Fatalf("expected reviews of the deleted course to be removed, got %d", reviews.Count)
	}

	var categories page[struct {
		Course []int `json:"course"`
	}]
	resp = call(t, http.MethodGet, "/categories/", "", nil)
	resp.decode(t, &categories)
	if categories.Count != 1 || len(categories.Results[0].Course) != 1 || categories.Results[0].Course[0] != biology.ID {
		t.Fatalf("expected category to keep only the remaining course: %s", string(resp.Body))
	}

	expectStatus(t, call(t, http.MethodDelete, "/accounts/2/", admin, nil), http.StatusNoContent)

	var profiles page[struct{ ID int }]
	resp = call(t, http.MethodGet, "/profiles/", "", nil)
	resp.decode(t, &profiles)
	if profiles.Count != 0 {
		t.Fatalf("expected the account's profile to be removed, got %d", profiles.Count)
	}
}

func TestTokenRefreshAndVerify(t *testing.T) {
	resetDatabase(t)

	resp := call(t, http.MethodPost, "/token/", "", map[string]string{"username": userUsername, "password": userPassword})
	expectStatus(t, resp, http.StatusOK)
	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	resp.decode(t, &pair)

	expectStatus(t, call(t, http.MethodPost, "/token/verify/", "", map[string]string{"token": pair.Access}), http.StatusOK)
	expectStatus(t, call(t, http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": pair.Refresh}), http.StatusOK)
	expectStatus(t, call(t, http.MethodPost, "/token/", "", map[string]string{"username": userUsername, "password": "wrong"}), http.StatusUnauthorized)
	expectStatus(t, call(t, http.MethodGet, "/courses/", "not-a-token", nil), http.StatusUnauthorized)
}
