package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"revoice/internal/config"
)

const (
	defaultEndpoint       = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Config captures the runtime settings required to talk to the chat API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// ConfigFrom maps the translation section of the daemon config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	t := cfg.Translation
	return Config{
		APIKey:         t.APIKey,
		BaseURL:        t.BaseURL,
		Model:          t.Model,
		Referer:        t.Referer,
		Title:          t.Title,
		TimeoutSeconds: t.TimeoutSeconds,
	}
}

// Client wraps a chat completion endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retryPolicy
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

// WithRetryMaxAttempts overrides the attempt budget (1 disables retries).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff overrides the backoff delays.
func WithRetryBackoff(base, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = base
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the retry sleep (tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleeper = sleeper
	}
}

// NewClient constructs a chat client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		retry: retryPolicy{
			attempts: defaultRetryAttempts,
			base:     defaultRetryBaseDelay,
			max:      defaultRetryMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// CompleteJSON issues a JSON-mode completion and returns the raw content.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	switch {
	case systemPrompt == "":
		return "", errors.New("llm complete: system prompt required")
	case userPrompt == "":
		return "", errors.New("llm complete: user prompt required")
	case !c.Configured():
		return "", errors.New("llm complete: api key required")
	}
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	var content string
	err := c.retry.do(ctx, "llm complete", func() error {
		var err error
		content, err = c.complete(ctx, req)
		return err
	})
	return content, err
}
