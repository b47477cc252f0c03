package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dcatwiz/internal/config"
	"dcatwiz/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.Translator{
		APIKey:          "test-key",
		BaseURL:         server.URL,
		TargetLanguages: []string{"de", "fr", "it"},
	}
	return NewClient(cfg, nil)
}

func TestTranslateAllTargets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key test-key" {
			t.Errorf("authorization = %q", got)
		}
		target := r.FormValue("target_lang")
		w.Write([]byte(`{"translations":[{"text":"` + target + `: Wasserstand"}]}`))
	})

	out, err := client.Translate(context.Background(), Request{Text: "Water level", SourceLang: "en"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("targets = %v, want 3 entries", out)
	}
	if out["de"] != "DE: Wasserstand" {
		t.Fatalf("de = %q", out["de"])
	}
}

func TestTranslateToleratesPerLanguageFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("target_lang") == "FR" {
			http.Error(w, "quota", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"translations":[{"text":"ok"}]}`))
	})

	out, err := client.Translate(context.Background(), Request{Text: "Water level"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out["de"] != "ok" || out["it"] != "ok" {
		t.Fatalf("unexpected successes: %v", out)
	}
	if value, present := out["fr"]; !present || value != "" {
		t.Fatalf("fr should be present and empty, got %q (present=%v)", value, present)
	}
}

func TestTranslateSkipsSourceLanguage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translations":[{"text":"ok"}]}`))
	})

	out, err := client.Translate(context.Background(), Request{
		Text:       "Wasserstand",
		SourceLang: "de",
		Targets:    []string{"de", "fr"},
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if _, present := out["de"]; present {
		t.Fatalf("source language should be skipped: %v", out)
	}
	if out["fr"] != "ok" {
		t.Fatalf("fr = %q", out["fr"])
	}
}

func TestTranslateRequiresText(t *testing.T) {
	client := NewClient(config.Translator{APIKey: "k", BaseURL: "http://localhost:1"}, nil)
	_, err := client.Translate(context.Background(), Request{Text: "  "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTranslateRequiresAPIKey(t *testing.T) {
	client := NewClient(config.Translator{BaseURL: "http://localhost:1"}, nil)
	_, err := client.Translate(context.Background(), Request{Text: "x"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestValidTarget(t *testing.T) {
	cases := []struct {
		lang string
		want bool
	}{
		{"de", true},
		{"fr", true},
		{"rm", true},
		{"", false},
		{"  ", false},
		{"zz@!", false},
	}
	for _, tc := range cases {
		if got := ValidTarget(tc.lang); got != tc.want {
			t.Errorf("ValidTarget(%q) = %v, want %v", tc.lang, got, tc.want)
		}
	}
}
