package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"revoice/internal/language"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
)

// Config holds the Data API settings.
type Config struct {
	APIKey          string
	Endpoint        string
	DefaultLanguage string
	TimeoutSeconds  int
}

// MetadataClient resolves video metadata through the YouTube Data API v3.
type MetadataClient struct {
	cfg     Config
	service *ytapi.Service
	timeout time.Duration
	logger  *slog.Logger
}

// Option customizes the client.
type Option func(*MetadataClient)

// WithService injects a prebuilt Data API service.
func WithService(service *ytapi.Service) Option {
	return func(c *MetadataClient) {
		if service != nil {
			c.service = service
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *MetadataClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewMetadataClient builds the Data API service once for the daemon's
// lifetime. Without an API key or injected service no service is built and
// Resolve reports the default language.
func NewMetadataClient(ctx context.Context, cfg Config, opts ...Option) (*MetadataClient, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if strings.TrimSpace(cfg.DefaultLanguage) == "" {
		cfg.DefaultLanguage = "pt-BR"
	}
	timeout := 10 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &MetadataClient{cfg: cfg, timeout: timeout, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.service != nil || cfg.APIKey == "" {
		return c, nil
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	service, err := ytapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage.Metadata, "youtube client", "build data api service", err)
	}
	c.service = service
	return c, nil
}

// Resolve returns the original spoken language of the video. When no API key
// is configured or the video declares no language the configured default is
// used.
func (c *MetadataClient) Resolve(ctx context.Context, videoID string) (stage.SourceMetadata, error) {
	fallback := stage.SourceMetadata{OriginalLanguage: c.cfg.DefaultLanguage}
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return fallback, services.Wrap(services.ErrValidation, stage.Metadata, "resolve", "video id required", nil)
	}
	if c.service == nil {
		c.logger.Debug("youtube api key not configured; using default language",
			logging.String("language", c.cfg.DefaultLanguage))
		return fallback, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.service.Videos.List([]string{"snippet"}).Id(videoID).Context(callCtx).Do()
	if err != nil {
		return fallback, wrapAPIError(err)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return fallback, services.Wrap(services.ErrNotFound, stage.Metadata, "videos.list", "video "+videoID+" not found", nil)
	}

	meta := stage.SourceMetadata{OriginalLanguage: c.cfg.DefaultLanguage}
	snippet := resp.Items[0].Snippet
	if snippet == nil {
		return meta, nil
	}
	meta.Title = snippet.Title
	meta.Channel = snippet.ChannelTitle
	for _, candidate := range []string{snippet.DefaultAudioLanguage, snippet.DefaultLanguage} {
		if tag, err := language.Normalize(candidate); err == nil {
			meta.OriginalLanguage = tag
			break
		}
	}
	return meta, nil
}

// HealthCheck reports whether the client can resolve languages from the API.
func (c *MetadataClient) HealthCheck(context.Context) stage.Health {
	if c.service == nil {
		return stage.Unhealthy(stage.Metadata, "youtube api key not configured; default language "+c.cfg.DefaultLanguage+" assumed")
	}
	return stage.Healthy(stage.Metadata)
}

func wrapAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return services.Wrap(services.ErrTransient, stage.Metadata, "videos.list", "request failed", err)
	}
	msg := fmt.Sprintf("http %d", apiErr.Code)
	if apiErr.Message != "" {
		msg += ": " + apiErr.Message
	}
	marker := services.ErrTransient
	switch apiErr.Code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		marker = services.ErrConfiguration
	case http.StatusNotFound:
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, stage.Metadata, "videos.list", msg, nil)
}
