package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"dcatwiz/internal/config"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/services"
)

// SubmissionResult carries the catalog's answer to a successful submission.
type SubmissionResult struct {
	DatasetID  string `json:"dataset_id"`
	StatusCode int    `json:"status_code"`
}

// Client submits dataset documents to the catalog's input API.
type Client struct {
	baseURL    string
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

// NewClient constructs a catalog client from configuration.
func NewClient(cfg config.Catalog, logger *slog.Logger, opts ...Option) *Client {
	timeout := 30 * time.Second
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(logging.FieldComponent, "catalog"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NormalizeToken trims the value and ensures the "Bearer " scheme prefix.
func NormalizeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", services.Wrap(services.ErrValidation, "submit", "token", "API token is required", nil)
	}
	if !strings.HasPrefix(token, "Bearer ") {
		token = "Bearer " + token
	}
	return token, nil
}

// Submit posts the dataset document using the caller's bearer token. The
// token must already carry the "Bearer " prefix (see NormalizeToken).
func (c *Client) Submit(ctx context.Context, document any, token string) (SubmissionResult, error) {
	var empty SubmissionResult
	encoded, err := json.Marshal(document)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "submit", "submit", "encode dataset document", err)
	}

	endpoint := c.baseURL + "/datasets"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, services.Wrap(services.ErrConfiguration, "submit", "submit", "build request", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return empty, services.Wrap(services.ErrTimeout, "submit", "submit", "catalog did not answer in time", err)
		}
		return empty, services.Wrap(services.ErrTransient, "submit", "submit", "could not reach the catalog", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "submit", "submit", "read catalog response", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		result := SubmissionResult{
			DatasetID:  extractDatasetID(body),
			StatusCode: resp.StatusCode,
		}
		c.logger.Info("dataset submitted", "dataset_id", result.DatasetID, "status", resp.StatusCode)
		return result, nil
	case http.StatusUnauthorized:
		return empty, services.Wrap(services.ErrUnauthorized, "submit", "submit", "the catalog rejected the API token", nil)
	case http.StatusForbidden:
		return empty, services.Wrap(services.ErrUnauthorized, "submit", "submit", "the API token lacks permission to create datasets", nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return empty, services.Wrap(services.ErrValidation, "submit", "submit",
			fmt.Sprintf("the catalog rejected the document: %s", validationDetail(body)), nil)
	default:
		marker := services.ErrExternalService
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return empty, services.Wrap(marker, "submit", "submit",
			fmt.Sprintf("unexpected catalog response: http %d", resp.StatusCode), nil)
	}
}

// The catalog has answered with both shapes over time.
func extractDatasetID(body []byte) string {
	var payload struct {
		ID        string `json:"id"`
		DatasetID string `json:"datasetId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Some responses are a bare JSON string holding the identifier.
		var bare string
		if json.Unmarshal(body, &bare) == nil {
			return bare
		}
		return ""
	}
	if payload.ID != "" {
		return payload.ID
	}
	return payload.DatasetID
}

func validationDetail(body []byte) string {
	var payload struct {
		Title  string         `json:"title"`
		Detail string         `json:"detail"`
		Errors map[string]any `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Title != "" {
			return payload.Title
		}
		if len(payload.Errors) > 0 {
			keys := make([]string, 0, len(payload.Errors))
			for key := range payload.Errors {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			return "invalid fields: " + strings.Join(keys, ", ")
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}
