package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"dcatwiz/internal/server"
	"dcatwiz/internal/wizard"
)

// apiClient is a thin HTTP wrapper around the daemon API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *apiClient) DaemonStatus() (server.Status, error) {
	var out server.Status
	err := c.do(http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *apiClient) Workflows() ([]wizard.WorkflowSummary, error) {
	var out struct {
		Workflows []wizard.WorkflowSummary `json:"workflows"`
	}
	err := c.do(http.MethodGet, "/api/workflows", nil, &out)
	return out.Workflows, err
}

func (c *apiClient) Intake(sourceURL, landingURL string) (wizard.IntakeResult, error) {
	var out wizard.IntakeResult
	err := c.do(http.MethodPost, "/api/workflows",
		map[string]string{"source_url": sourceURL, "landing_url": landingURL}, &out)
	return out, err
}

func (c *apiClient) WorkflowStatus(id string) (wizard.StatusView, error) {
	var out wizard.StatusView
	err := c.do(http.MethodGet, "/api/workflows/"+id+"/status", nil, &out)
	return out, err
}

func (c *apiClient) Review(id string) (wizard.ReviewView, error) {
	var out wizard.ReviewView
	err := c.do(http.MethodGet, "/api/workflows/"+id+"/review", nil, &out)
	return out, err
}

func (c *apiClient) MachineTranslate(id string) (wizard.TranslationView, error) {
	var out wizard.TranslationView
	err := c.do(http.MethodPost, "/api/workflows/"+id+"/translate", nil, &out)
	return out, err
}

func (c *apiClient) Document(id string) (wizard.DocumentView, error) {
	var out wizard.DocumentView
	err := c.do(http.MethodGet, "/api/workflows/"+id+"/document", nil, &out)
	return out, err
}

func (c *apiClient) Submit(id, catalogToken string) (wizard.SubmitResult, error) {
	var out wizard.SubmitResult
	err := c.do(http.MethodPost, "/api/workflows/"+id+"/submit",
		map[string]string{"token": catalogToken}, &out)
	return out, err
}

func (c *apiClient) Abandon(id string) error {
	return c.do(http.MethodDelete, "/api/workflows/"+id, nil, nil)
}

func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeFailure(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeFailure(resp *http.Response) error {
	var failure struct {
		Error    string `json:"error"`
		Redirect string `json:"redirect"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &failure); err != nil || failure.Error == "" {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	if failure.Redirect != "" {
		return fmt.Errorf("%s (go back to the %s step)", failure.Error, failure.Redirect)
	}
	return errors.New(failure.Error)
}

func wrapDialError(err error, base string) error {
	var netErr *net.OpError
	if errors.As(err, &netErr) && errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `dcatwizd`", base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}
