// Package client talks to the folio HTTP API and keeps the local view state
// a presentation layer renders from.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kalambet/folio/internal/profile"
)

// Fixed per-call timeouts. Requests are never retried.
const (
	ProfileTimeout = 8 * time.Second
	HealthTimeout  = 4 * time.Second
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client is an HTTP client for the folio API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// New returns a Client for the API rooted at baseURL (for example
// http://localhost:3000/api). timeout bounds calls without a fixed timeout;
// zero selects a default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (profile.Health, error) {
	var h profile.Health
	resp, err := c.do(ctx, HealthTimeout, http.MethodGet, "/health", nil)
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return h, readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, fmt.Errorf("decoding health: %w", err)
	}
	return h, nil
}

// Ready calls GET /ready and reports whether the store is reachable.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, HealthTimeout, http.MethodGet, "/ready", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}

// Profile calls GET /profile.
func (c *Client) Profile(ctx context.Context) (profile.Profile, error) {
	var p profile.Profile
	err := c.call(ctx, ProfileTimeout, http.MethodGet, "/profile", nil, &p)
	return p, err
}

// SearchProjects calls GET /search with query as the skills parameter.
func (c *Client) SearchProjects(ctx context.Context, query string) ([]profile.Project, error) {
	var projects []profile.Project
	path := "/search?" + url.Values{"skills": {query}}.Encode()
	err := c.call(ctx, c.timeout, http.MethodGet, path, nil, &projects)
	return projects, err
}

// TopSkills calls GET /skills.
func (c *Client) TopSkills(ctx context.Context) ([]string, error) {
	var skills []string
	err := c.call(ctx, c.timeout, http.MethodGet, "/skills", nil, &skills)
	return skills, err
}

// Find calls GET /find.
func (c *Client) Find(ctx context.Context, query string) ([]profile.Profile, error) {
	var results []profile.Profile
	path := "/find?" + url.Values{"q": {query}}.Encode()
	err := c.call(ctx, c.timeout, http.MethodGet, path, nil, &results)
	return results, err
}

// Create calls POST /create.
func (c *Client) Create(ctx context.Context, req profile.CreateRequest) (profile.Profile, error) {
	var p profile.Profile
	err := c.call(ctx, c.timeout, http.MethodPost, "/create", req, &p)
	return p, err
}

// Update calls PATCH /update/{email} with patch as the body.
func (c *Client) Update(ctx context.Context, email string, patch any) (profile.Profile, error) {
	var p profile.Profile
	err := c.call(ctx, c.timeout, http.MethodPatch, "/update/"+url.PathEscape(email), patch, &p)
	return p, err
}

// call performs a request and decodes the envelope's data into out.
func (c *Client) call(ctx context.Context, timeout time.Duration, method, path string, body, out any) error {
	resp, err := c.do(ctx, timeout, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// do sends the request under its own timeout. The response body is read by
// the caller before the timeout context is released.
func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody releases the request context when the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func readAPIError(resp *http.Response) error {
	var env envelope
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &env); err == nil && env.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
