package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateDedupe(); err != nil {
		return err
	}
	if err := c.validateTelemetry(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind must be host:port: %w", err)
	}
	if c.API.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
			return fmt.Errorf("api.base_url: %w", err)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required when database.driver is postgres (or set DATABASE_URL)")
		}
		return nil
	default:
		return fmt.Errorf("database.driver: unsupported value %q (want sqlite or postgres)", c.Database.Driver)
	}
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		return nil
	case StorageMinIO:
		if c.Storage.MinIO.Endpoint == "" {
			return errors.New("storage.minio.endpoint is required for the minio backend")
		}
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the minio backend")
		}
		return nil
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 backend")
		}
		if c.Storage.S3.Region == "" {
			return errors.New("storage.s3.region is required for the s3 backend (or set AWS_REGION)")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want local, minio, or s3)", c.Storage.Backend)
	}
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.JobTimeoutSeconds < 0 {
		return errors.New("workflow.job_timeout_seconds must be >= 0")
	}
	if c.Workflow.ShutdownSeconds < 0 {
		return errors.New("workflow.shutdown_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateDedupe() error {
	switch c.Dedupe.Mode {
	case DedupeOff, DedupeMemory:
		return nil
	case DedupeRedis:
		if c.Dedupe.RedisAddr == "" {
			return errors.New("dedupe.redis_addr is required when dedupe.mode is redis")
		}
		return nil
	default:
		return fmt.Errorf("dedupe.mode: unsupported value %q (want off, memory, or redis)", c.Dedupe.Mode)
	}
}

func (c *Config) validateTelemetry() error {
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
