package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleSpec = `{
	"openapi": "3.0.1",
	"info": {
		"title": "Hydro Data API",
		"description": "Water levels for Swiss rivers. Updated hourly.",
		"version": "2.4.0",
		"contact": {"email": "hydro@example.admin.ch"}
	},
	"tags": [{"name": "stations"}, {"name": "measurements"}],
	"servers": [{"url": "https://hydro.example.admin.ch/api"}],
	"paths": {
		"/stations": {
			"get": {"summary": "List measuring stations"},
			"post": {"description": "Register a station. Requires admin role."}
		},
		"/measurements": {
			"get": {"summary": "Query measurements"}
		}
	}
}`

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(5*time.Second, nil)
}

func TestExtractParsesDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleSpec))
	}))
	defer server.Close()

	result := newExtractor(t).Extract(context.Background(), server.URL)
	if result.Err != "" {
		t.Fatalf("unexpected error: %s", result.Err)
	}
	if result.Title != "Hydro Data API" {
		t.Fatalf("title = %q", result.Title)
	}
	if result.Version != "2.4.0" {
		t.Fatalf("version = %q", result.Version)
	}
	if len(result.Keywords) != 2 || result.Keywords[0] != "stations" {
		t.Fatalf("keywords = %v", result.Keywords)
	}
	if len(result.Endpoints) != 3 {
		t.Fatalf("endpoints = %d, want 3", len(result.Endpoints))
	}
	if result.Methods["GET"] != 2 || result.Methods["POST"] != 1 {
		t.Fatalf("methods = %v", result.Methods)
	}
	if result.Contact["email"] != "hydro@example.admin.ch" {
		t.Fatalf("contact = %v", result.Contact)
	}
	// Endpoint without a summary falls back to the first description sentence.
	var postSummary string
	for _, ep := range result.Endpoints {
		if ep.Method == "POST" {
			postSummary = ep.Summary
		}
	}
	if postSummary != "Register a station." {
		t.Fatalf("post summary = %q", postSummary)
	}
}

func TestExtractResolvesSwaggerUIPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html><html><body>
			<script>SwaggerUIBundle({url: "/spec/openapi.json"});</script>
		</body></html>`))
	})
	mux.HandleFunc("/spec/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleSpec))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result := newExtractor(t).Extract(context.Background(), server.URL+"/docs")
	if result.Err != "" {
		t.Fatalf("unexpected error: %s", result.Err)
	}
	if result.Title != "Hydro Data API" {
		t.Fatalf("title = %q", result.Title)
	}
	if result.SpecURL != server.URL+"/spec/openapi.json" {
		t.Fatalf("spec url = %q", result.SpecURL)
	}
}

func TestExtractProbesWellKnownPaths(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/api-docs":
			w.Write([]byte(sampleSpec))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><head><title>API portal</title></head></html>`))
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result := newExtractor(t).Extract(context.Background(), server.URL+"/portal")
	if result.Err != "" {
		t.Fatalf("unexpected error: %s", result.Err)
	}
	if result.Title != "Hydro Data API" {
		t.Fatalf("title = %q", result.Title)
	}
}

func TestExtractReportsUnresolvableHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>nothing here</body></html>`))
	}))
	defer server.Close()

	result := newExtractor(t).Extract(context.Background(), server.URL)
	if result.Err == "" {
		t.Fatal("expected an extraction error")
	}
}

func TestExtractReportsFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	result := newExtractor(t).Extract(context.Background(), server.URL)
	if result.Err == "" {
		t.Fatal("expected an extraction error")
	}
}
