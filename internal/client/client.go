// Package client talks to the revoiced HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"revoice/internal/api"
	"revoice/internal/services"
)

// Client is an HTTP client for the daemon API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
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

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New constructs a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response. It unwraps to the services marker matching
// the status code so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
	Hint       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("api: http %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusServiceUnavailable:
		return services.ErrConfiguration
	case http.StatusGatewayTimeout:
		return services.ErrTimeout
	default:
		return services.ErrTransient
	}
}

// Submit posts a new job.
func (c *Client) Submit(ctx context.Context, req api.SubmitRequest) (api.SubmitResponse, error) {
	var resp api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/process", nil, req, &resp)
	return resp, err
}

// Job fetches one job by id.
func (c *Client) Job(ctx context.Context, id string) (*api.JobRecord, error) {
	var record api.JobRecord
	if err := c.do(ctx, http.MethodGet, "/job/"+url.PathEscape(id), nil, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// LatestCompleted returns the newest done job for source and language.
func (c *Client) LatestCompleted(ctx context.Context, source, language string) (*api.JobRecord, error) {
	query := url.Values{"source": {source}, "language": {language}}
	var record api.JobRecord
	if err := c.do(ctx, http.MethodGet, "/job", query, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns jobs filtered by status, newest first. limit <= 0 means no limit.
func (c *Client) List(ctx context.Context, statuses []string, limit int) ([]api.JobRecord, error) {
	query := url.Values{}
	for _, status := range statuses {
		if s := strings.TrimSpace(status); s != "" {
			query.Add("status", s)
		}
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp api.JobListResponse
	if err := c.do(ctx, http.MethodGet, "/jobs", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Health fetches the daemon health report. A degraded daemon answers 503 with
// a body, which is returned alongside the error.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &resp)
	if err != nil && resp.Status == "" {
		return nil, err
	}
	return &resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("api: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "", method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "", method+" "+path, "read response", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody api.ErrorResponse
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			apiErr.Message, apiErr.Kind, apiErr.Hint = errBody.Error, errBody.Kind, errBody.Hint
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		// Health answers 503 with a full report.
		if out != nil && resp.StatusCode == http.StatusServiceUnavailable {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrTransient, "", method+" "+path, "decode response", err)
	}
	return nil
}
