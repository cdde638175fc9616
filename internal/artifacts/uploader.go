package artifacts

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"revoice/internal/config"
	"revoice/internal/services"
	"revoice/internal/stage"
)

// Uploader publishes a local file under destination name and returns a
// public reference to it.
type Uploader interface {
	Upload(ctx context.Context, localPath, name string) (string, error)
	HealthCheck(ctx context.Context) stage.Health
}

// New builds the uploader selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.Config) (Uploader, error) {
	if cfg == nil {
		return nil, fmt.Errorf("artifacts: config required")
	}
	switch cfg.Storage.Backend {
	case config.StorageLocal, "":
		return NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL), nil
	case config.StorageMinIO:
		return NewMinIO(MinIOConfig{
			Endpoint:      cfg.Storage.MinIO.Endpoint,
			AccessKey:     cfg.Storage.MinIO.AccessKey,
			SecretKey:     cfg.Storage.MinIO.SecretKey,
			UseSSL:        cfg.Storage.MinIO.UseSSL,
			Region:        cfg.Storage.MinIO.Region,
			Bucket:        cfg.Storage.Bucket,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
	case config.StorageS3:
		return NewS3(ctx, S3Config{
			Region:        cfg.Storage.S3.Region,
			Endpoint:      cfg.Storage.S3.Endpoint,
			Bucket:        cfg.Storage.Bucket,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, stage.Upload, "artifacts",
			"unknown storage backend "+cfg.Storage.Backend, nil)
	}
}

// ContentType guesses the MIME type from the destination name.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".mp4":
		return "video/mp4"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func validateName(name string) error {
	if name == "" || strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return services.Wrap(services.ErrValidation, stage.Upload, "artifacts", "invalid destination name "+name, nil)
	}
	return nil
}

func publicURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}
