package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dcatwiz/internal/config"
	"dcatwiz/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.Catalog{BaseURL: server.URL, RequestTimeout: 5}, nil)
}

func TestSubmitSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/datasets" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("authorization = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"dataset-42"}`))
	})

	result, err := client.Submit(context.Background(), map[string]any{"title": "x"}, "Bearer token-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.DatasetID != "dataset-42" {
		t.Fatalf("dataset id = %q", result.DatasetID)
	}
	if result.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", result.StatusCode)
	}
}

func TestSubmitAcceptsAlternateIDField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"datasetId":"dataset-7"}`))
	})

	result, err := client.Submit(context.Background(), map[string]any{}, "Bearer t")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.DatasetID != "dataset-7" {
		t.Fatalf("dataset id = %q", result.DatasetID)
	}
}

func TestSubmitErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		marker error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, services.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{}`, services.ErrUnauthorized},
		{"bad request", http.StatusBadRequest, `{"detail":"title missing"}`, services.ErrValidation},
		{"validation", http.StatusUnprocessableEntity, `{"errors":{"description":["required"]}}`, services.ErrValidation},
		{"server error", http.StatusBadGateway, ``, services.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := client.Submit(context.Background(), map[string]any{}, "Bearer t")
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestSubmitValidationDetailNamesFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":{"description":["required"],"title":["required"]}}`))
	})

	_, err := client.Submit(context.Background(), map[string]any{}, "Bearer t")
	if err == nil || !strings.Contains(err.Error(), "description, title") {
		t.Fatalf("expected field names in error, got %v", err)
	}
}

func TestSubmitConnectionFailureIsTransient(t *testing.T) {
	client := NewClient(config.Catalog{BaseURL: "http://127.0.0.1:1", RequestTimeout: 1}, nil)
	_, err := client.Submit(context.Background(), map[string]any{}, "Bearer t")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestNormalizeToken(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"abc", "Bearer abc", false},
		{"Bearer abc", "Bearer abc", false},
		{"  Bearer abc  ", "Bearer abc", false},
		{"   ", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeToken(tc.in)
		if tc.wantErr {
			if !errors.Is(err, services.ErrValidation) {
				t.Errorf("NormalizeToken(%q): expected validation error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("NormalizeToken(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
