package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"dcatwiz/internal/logging"
)

// Result holds everything extracted from an API description document. A
// failed extraction produces a Result with Err set instead of an error so
// downstream steps can persist and display the partial outcome.
type Result struct {
	SpecURL     string            `json:"spec_url"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Keywords    []string          `json:"keywords"`
	Endpoints   []Endpoint        `json:"endpoints"`
	Methods     map[string]int    `json:"methods"`
	Servers     []string          `json:"servers"`
	Contact     map[string]string `json:"contact,omitempty"`
	Err         string            `json:"error,omitempty"`
}

// Endpoint is one operation from the paths object.
type Endpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

// Extractor downloads and parses OpenAPI/Swagger documents.
type Extractor struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the extractor.
type Option func(*Extractor)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// NewExtractor builds an extractor with the given request timeout.
func NewExtractor(timeout time.Duration, logger *slog.Logger, opts ...Option) *Extractor {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	extractor := &Extractor{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(logging.FieldComponent, "openapi"),
	}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

const maxSpecBytes = 8 << 20

// Candidate paths probed when the given URL serves an HTML viewer instead of
// the raw document.
var wellKnownSpecPaths = []string{
	"swagger.json",
	"openapi.json",
	"v2/api-docs",
	"v3/api-docs",
	"api-docs",
	"swagger/v1/swagger.json",
	"openapi/v3/api-docs",
}

// Patterns that locate the document URL inside Swagger UI / ReDoc HTML.
var specURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`url\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`spec-url\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`["']([^"']*(?:swagger|openapi|api-docs)[^"']*\.json)["']`),
}

// Extract fetches the document at rawURL, resolving HTML viewer pages to the
// underlying JSON document when necessary.
func (e *Extractor) Extract(ctx context.Context, rawURL string) Result {
	result := Result{SpecURL: rawURL}

	body, finalURL, err := e.fetch(ctx, rawURL)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	if looksLikeHTML(body) {
		resolved, resolvedBody, rerr := e.resolveFromHTML(ctx, finalURL, body)
		if rerr != nil {
			result.Err = rerr.Error()
			return result
		}
		finalURL, body = resolved, resolvedBody
	}
	result.SpecURL = finalURL

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		result.Err = fmt.Sprintf("document at %s is not valid JSON: %v", finalURL, err)
		return result
	}
	parseDocument(doc, &result)
	e.logger.Debug("extracted api description",
		"url", finalURL,
		"title", result.Title,
		"endpoints", len(result.Endpoints))
	return result
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, rawURL, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.5, */*;q=0.1")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, rawURL, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, rawURL, fmt.Errorf("fetch %s: http %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecBytes))
	if err != nil {
		return nil, rawURL, fmt.Errorf("read %s: %w", rawURL, err)
	}
	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return body, final, nil
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	head = strings.TrimSpace(head)
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<head") || strings.Contains(head, "swagger-ui")
}

// resolveFromHTML finds the JSON document behind a viewer page: first via
// URLs referenced in the page source, then by probing well-known paths.
func (e *Extractor) resolveFromHTML(ctx context.Context, pageURL string, page []byte) (string, []byte, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", nil, fmt.Errorf("parse page URL: %w", err)
	}

	seen := map[string]bool{}
	var candidates []string
	add := func(raw string) {
		ref, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if resolved == pageURL || seen[resolved] {
			return
		}
		seen[resolved] = true
		candidates = append(candidates, resolved)
	}

	text := string(page)
	for _, pattern := range specURLPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, 8) {
			add(match[1])
		}
	}
	root := *base
	root.Path = "/"
	root.RawQuery = ""
	for _, path := range wellKnownSpecPaths {
		add(root.String() + path)
	}

	for _, candidate := range candidates {
		body, finalURL, err := e.fetch(ctx, candidate)
		if err != nil || looksLikeHTML(body) {
			continue
		}
		if json.Valid(body) {
			e.logger.Debug("resolved html viewer to document", "page", pageURL, "document", finalURL)
			return finalURL, body, nil
		}
	}
	return "", nil, fmt.Errorf("%s serves an HTML page and no API document could be located behind it", pageURL)
}

var httpMethods = []string{"get", "post", "put", "patch", "delete", "head", "options"}

func parseDocument(doc map[string]json.RawMessage, result *Result) {
	var info struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Version     string `json:"version"`
		Contact     struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			URL   string `json:"url"`
		} `json:"contact"`
	}
	if raw, ok := doc["info"]; ok {
		json.Unmarshal(raw, &info)
	}
	result.Title = strings.TrimSpace(info.Title)
	result.Description = strings.TrimSpace(info.Description)
	result.Version = strings.TrimSpace(info.Version)
	if info.Contact.Name != "" || info.Contact.Email != "" || info.Contact.URL != "" {
		result.Contact = map[string]string{}
		if info.Contact.Name != "" {
			result.Contact["name"] = info.Contact.Name
		}
		if info.Contact.Email != "" {
			result.Contact["email"] = info.Contact.Email
		}
		if info.Contact.URL != "" {
			result.Contact["url"] = info.Contact.URL
		}
	}

	var tags []struct {
		Name string `json:"name"`
	}
	if raw, ok := doc["tags"]; ok {
		json.Unmarshal(raw, &tags)
	}
	for _, tag := range tags {
		if name := strings.TrimSpace(tag.Name); name != "" {
			result.Keywords = append(result.Keywords, name)
		}
	}

	var servers []struct {
		URL string `json:"url"`
	}
	if raw, ok := doc["servers"]; ok {
		json.Unmarshal(raw, &servers)
	}
	for _, server := range servers {
		if server.URL != "" {
			result.Servers = append(result.Servers, server.URL)
		}
	}
	// Swagger 2.0 host/basePath form.
	if len(result.Servers) == 0 {
		var host, basePath string
		if raw, ok := doc["host"]; ok {
			json.Unmarshal(raw, &host)
		}
		if raw, ok := doc["basePath"]; ok {
			json.Unmarshal(raw, &basePath)
		}
		if host != "" {
			result.Servers = append(result.Servers, "https://"+host+basePath)
		}
	}

	var paths map[string]map[string]struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
	}
	if raw, ok := doc["paths"]; ok {
		json.Unmarshal(raw, &paths)
	}
	result.Methods = map[string]int{}
	pathNames := make([]string, 0, len(paths))
	for path := range paths {
		pathNames = append(pathNames, path)
	}
	sort.Strings(pathNames)
	for _, path := range pathNames {
		for _, method := range httpMethods {
			op, ok := paths[path][method]
			if !ok {
				continue
			}
			summary := op.Summary
			if summary == "" {
				summary = firstSentence(op.Description)
			}
			upper := strings.ToUpper(method)
			result.Methods[upper]++
			result.Endpoints = append(result.Endpoints, Endpoint{
				Method:  upper,
				Path:    path,
				Summary: summary,
			})
		}
	}
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".\n"); idx > 0 {
		return strings.TrimSpace(text[:idx+1])
	}
	if len(text) > 160 {
		return text[:160]
	}
	return text
}
