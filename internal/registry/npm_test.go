package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const leftPadDoc = `{
	"_id": "left-pad",
	"time": {
		"created": "2014-03-29T17:57:26.608Z",
		"modified": "2024-03-01T10:00:00.000Z",
		"1.3.0": "2018-04-10T21:07:05.208Z"
	},
	"versions": {
		"1.3.0": {
			"version": "1.3.0",
			"description": "String left pad",
			"author": {"name": "azer"},
			"dependencies": {"wcwidth": "^1.0.1"}
		}
	}
}`

func TestFetchMetadata(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(leftPadDoc))
	}))
	defer server.Close()

	reg := New(server.URL, NewClient())
	meta, err := reg.FetchMetadata(context.Background(), "left-pad")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}

	if gotPath != "/left-pad" {
		t.Errorf("path = %q, want %q", gotPath, "/left-pad")
	}
	if meta.Name != "left-pad" {
		t.Errorf("Name = %q, want %q", meta.Name, "left-pad")
	}
	if got := meta.Time["1.3.0"]; got != "2018-04-10T21:07:05.208Z" {
		t.Errorf("Time[1.3.0] = %q, want publish timestamp", got)
	}
	detail, ok := meta.Versions["1.3.0"]
	if !ok {
		t.Fatal("Versions missing 1.3.0")
	}
	if detail.Description != "String left pad" {
		t.Errorf("Description = %q", detail.Description)
	}
	if len(detail.Dependencies) != 1 {
		t.Errorf("len(Dependencies) = %d, want 1", len(detail.Dependencies))
	}
}

func TestFetchMetadataNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	reg := New(server.URL, NewClient())
	_, err := reg.FetchMetadata(context.Background(), "no-such-package")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || !httpErr.IsNotFound() {
		t.Errorf("FetchMetadata = %v, want 404 *HTTPError", err)
	}
}

func TestAuthorName(t *testing.T) {
	tests := []struct {
		name   string
		author any
		want   string
	}{
		{"object with name", map[string]any{"name": "azer", "email": "a@example.com"}, "azer"},
		{"object without name", map[string]any{"email": "a@example.com"}, ""},
		{"plain string", "TJ Holowaychuk", "TJ Holowaychuk"},
		{"absent", nil, ""},
		{"other shape coerced", float64(42), "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := VersionDetail{Author: tt.author}
			if got := d.AuthorName(); got != tt.want {
				t.Errorf("AuthorName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	reg := New("", nil)
	if reg.baseURL != DefaultURL {
		t.Errorf("baseURL = %q, want %q", reg.baseURL, DefaultURL)
	}

	reg = New("https://registry.example.com/", nil)
	if reg.baseURL != "https://registry.example.com" {
		t.Errorf("baseURL = %q, trailing slash not trimmed", reg.baseURL)
	}
}
