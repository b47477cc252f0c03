package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"dcatwiz/internal/config"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/services"
)

// Request is one text to translate into the configured target languages.
type Request struct {
	Text       string
	SourceLang string
	Targets    []string
}

// Client translates wizard texts through a DeepL-style HTTP API. Individual
// target languages are tolerated to fail: the result always contains every
// requested target, failed ones with an empty string.
type Client struct {
	cfg        config.Translator
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a translator client from configuration.
func NewClient(cfg config.Translator, logger *slog.Logger, opts ...Option) *Client {
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(logging.FieldComponent, "translate"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ValidTarget reports whether lang is a well-formed language tag.
func ValidTarget(lang string) bool {
	if strings.TrimSpace(lang) == "" {
		return false
	}
	_, err := language.Parse(lang)
	return err == nil
}

// Translate renders the request text into every target language. Per-target
// failures are logged and leave the target's entry empty; Translate fails as
// a whole only when misconfigured or when the source text is empty.
func (c *Client) Translate(ctx context.Context, req Request) (map[string]string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "translate", "translate", "translator api key not configured", nil)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "translate", "translate", "source text is empty", nil)
	}
	source := strings.ToLower(strings.TrimSpace(req.SourceLang))
	if source == "" {
		source = "en"
	}
	targets := req.Targets
	if len(targets) == 0 {
		targets = c.cfg.TargetLanguages
	}

	out := make(map[string]string, len(targets))
	for _, target := range targets {
		target = strings.ToLower(strings.TrimSpace(target))
		if target == "" || target == source {
			continue
		}
		out[target] = ""
		if !ValidTarget(target) {
			c.logger.Warn("skipping malformed target language", "lang", target)
			continue
		}
		translated, err := c.translateOne(ctx, text, source, target)
		if err != nil {
			if ctx.Err() != nil {
				return out, services.Wrap(services.ErrTimeout, "translate", "translate", "translation cancelled", ctx.Err())
			}
			c.logger.Warn("translation failed for target language",
				"lang", target,
				"error", err)
			continue
		}
		out[target] = translated
	}
	return out, nil
}

type translateResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (c *Client) translateOne(ctx context.Context, text, source, target string) (string, error) {
	form := url.Values{
		"text":        {text},
		"source_lang": {strings.ToUpper(source)},
		"target_lang": {strings.ToUpper(target)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	var parsed translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("empty translation list")
	}
	return parsed.Translations[0].Text, nil
}
