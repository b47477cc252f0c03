package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"dcatwiz/internal/config"
	"dcatwiz/internal/services"
)

// Publisher is one organization from the catalog's publisher directory.
type Publisher struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Name        map[string]string `json:"name"`
	Address     *Address          `json:"address,omitempty"`
}

// Address carries optional contact details resolved from the organization registry.
type Address struct {
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Organization map[string]string `json:"organization,omitempty"`
	Department   map[string]string `json:"department,omitempty"`
}

// Client fetches the publisher directory and enriches entries with contact
// details from the organization registry.
type Client struct {
	agentsURL    string
	orgSearchURL string
	httpClient   *http.Client
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

// NewClient constructs a directory client from configuration.
func NewClient(cfg config.Directory, opts ...Option) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		agentsURL:    strings.TrimSpace(cfg.AgentsURL),
		orgSearchURL: strings.TrimSpace(cfg.OrgSearchURL),
		httpClient:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type agentRecord struct {
	ID   string            `json:"id"`
	Name map[string]string `json:"name"`
}

// List fetches the publisher directory, sorted by display name. Entries
// without an identifier or a resolvable name are skipped.
func (c *Client) List(ctx context.Context) ([]Publisher, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.agentsURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "directory", "list", "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "directory", "list", "fetch agents", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalService, "directory", "list", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	var records []agentRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "directory", "list", "decode agents", err)
	}

	publishers := make([]Publisher, 0, len(records))
	for _, record := range records {
		if record.ID == "" || len(record.Name) == 0 {
			continue
		}
		display := displayName(record.Name)
		if display == "" {
			continue
		}
		pub := Publisher{
			ID:          record.ID,
			DisplayName: display,
			Name:        record.Name,
		}
		if german := record.Name["de"]; german != "" {
			pub.Address = c.lookupAddress(ctx, german)
		}
		publishers = append(publishers, pub)
	}

	sort.Slice(publishers, func(i, j int) bool {
		return publishers[i].DisplayName < publishers[j].DisplayName
	})
	return publishers, nil
}

// displayName prefers English, then German, then any non-empty entry.
func displayName(names map[string]string) string {
	if name := names["en"]; name != "" {
		return name
	}
	if name := names["de"]; name != "" {
		return name
	}
	for _, lang := range []string{"fr", "it", "rm"} {
		if name := names[lang]; name != "" {
			return name
		}
	}
	for _, name := range names {
		if name != "" {
			return name
		}
	}
	return ""
}

type orgSearchResponse struct {
	Result []struct {
		Phone        string `json:"phone"`
		Email        string `json:"email"`
		Department   struct {
			Name map[string]string `json:"name"`
		} `json:"department"`
		Organization struct {
			Name map[string]string `json:"name"`
		} `json:"organization"`
	} `json:"result"`
}

// lookupAddress is best effort: any failure simply leaves the address unset.
func (c *Client) lookupAddress(ctx context.Context, germanName string) *Address {
	if c.orgSearchURL == "" {
		return nil
	}
	query := url.Values{
		"lang":     {"de"},
		"s":        {germanName},
		"page":     {"1"},
		"pageSize": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.orgSearchURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var payload orgSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || len(payload.Result) == 0 {
		return nil
	}
	first := payload.Result[0]
	return &Address{
		Email:        first.Email,
		Phone:        first.Phone,
		Department:   first.Department.Name,
		Organization: first.Organization.Name,
	}
}
