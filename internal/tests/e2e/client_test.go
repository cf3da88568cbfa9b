//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

type response struct {
	Status int
	Body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decode %s: %v", string(r.Body), err)
	}
}

func call(t *testing.T, method, path, token string, payload any) response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return response{Status: resp.StatusCode, Body: data}
}

func expectStatus(t *testing.T, resp response, want int) {
	t.Helper()
	if resp.Status != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.Status, string(resp.Body))
	}
}

func login(t *testing.T, username, password string) string {
	t.Helper()
	resp := call(t, http.MethodPost, "/token/", "", map[string]string{
		"username": username,
		"password": password,
	})
	expectStatus(t, resp, http.StatusOK)

	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	resp.decode(t, &pair)
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("expected token pair, got %s", string(resp.Body))
	}
	return pair.Access
}

type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type course struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Author      string  `json:"author"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}
