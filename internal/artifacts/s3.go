package artifacts

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"revoice/internal/services"
	"revoice/internal/stage"
)

// S3Config describes an AWS S3 bucket. Credentials come from the default
// AWS provider chain.
type S3Config struct {
	Region        string
	Endpoint      string
	Bucket        string
	PublicBaseURL string
}

// S3 uploads artifacts with the AWS SDK.
type S3 struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3 loads the default AWS config for cfg.Region.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage.Upload, "s3", "region and bucket required", nil)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, cfg), nil
}

// NewS3WithClient wraps an existing client (tests, custom credentials).
func NewS3WithClient(client *s3.Client, cfg S3Config) *S3 {
	return &S3{client: client, cfg: cfg}
}

// Upload puts localPath at bucket/name.
func (s *S3) Upload(ctx context.Context, localPath, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("s3 upload: open %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(name),
		Body:        file,
		ContentType: aws.String(ContentType(name)),
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stage.Upload, "s3 put", name, err)
	}
	return s.objectURL(name), nil
}

// HealthCheck confirms the bucket is reachable with the current credentials.
func (s *S3) HealthCheck(ctx context.Context) stage.Health {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)}); err != nil {
		return stage.Unhealthy(stage.Upload, "s3: "+err.Error())
	}
	return stage.Healthy(stage.Upload)
}

func (s *S3) objectURL(name string) string {
	switch {
	case s.cfg.PublicBaseURL != "":
		return publicURL(s.cfg.PublicBaseURL, name)
	case s.cfg.Endpoint != "":
		return publicURL(s.cfg.Endpoint+"/"+s.cfg.Bucket, name)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, name)
	}
}
