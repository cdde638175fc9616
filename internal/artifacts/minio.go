package artifacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"revoice/internal/services"
	"revoice/internal/stage"
)

// MinIOConfig describes an S3-compatible endpoint reached through minio-go.
type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Region        string
	Bucket        string
	PublicBaseURL string
}

// MinIO uploads artifacts with minio-go.
type MinIO struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinIO constructs the client. No network traffic happens until the
// first upload or health check.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	if endpoint == "" || cfg.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage.Upload, "minio", "endpoint and bucket required", nil)
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinIO{client: client, bucket: cfg.Bucket, publicBaseURL: cfg.PublicBaseURL}, nil
}

// Upload puts localPath at bucket/name.
func (m *MinIO) Upload(ctx context.Context, localPath, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	_, err := m.client.FPutObject(ctx, m.bucket, name, localPath, minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stage.Upload, "minio put", name, err)
	}
	if m.publicBaseURL != "" {
		return publicURL(m.publicBaseURL, name), nil
	}
	return publicURL(m.client.EndpointURL().String()+"/"+m.bucket, name), nil
}

// HealthCheck confirms the bucket exists.
func (m *MinIO) HealthCheck(ctx context.Context) stage.Health {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	switch {
	case err != nil:
		return stage.Unhealthy(stage.Upload, "minio: "+err.Error())
	case !ok:
		return stage.Unhealthy(stage.Upload, "minio bucket "+m.bucket+" does not exist")
	}
	return stage.Healthy(stage.Upload)
}
