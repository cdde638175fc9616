package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"revoice/internal/config"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateHome(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(home, ".local", "share", "revoice")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "jobs.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.API.Bind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.YouTube.DefaultLanguage != "pt-BR" {
		t.Fatalf("expected pt-BR default source language, got %q", cfg.YouTube.DefaultLanguage)
	}
	if cfg.Database.Driver != config.DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if cfg.Storage.Backend != config.StorageLocal {
		t.Fatalf("expected local storage, got %q", cfg.Storage.Backend)
	}
	if cfg.Dedupe.Mode != config.DedupeOff {
		t.Fatalf("expected dedupe off by default, got %q", cfg.Dedupe.Mode)
	}
	if cfg.PollInterval().Milliseconds() != 2000 {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.JobTimeout() != 0 {
		t.Fatalf("expected unbounded job timeout, got %s", cfg.JobTimeout())
	}
	if cfg.ClientBaseURL() != "http://127.0.0.1:7488" {
		t.Fatalf("unexpected client base url: %q", cfg.ClientBaseURL())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.WorkDir, cfg.Paths.LogDir, cfg.Storage.LocalDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateHome(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "revoice.toml")

	type payload struct {
		API struct {
			Bind string `toml:"bind"`
		} `toml:"api"`
		YouTube struct {
			DefaultLanguage string `toml:"default_language"`
		} `toml:"youtube"`
		Workflow struct {
			JobTimeoutSeconds int `toml:"job_timeout_seconds"`
		} `toml:"workflow"`
		Storage struct {
			Backend string `toml:"backend"`
			Bucket  string `toml:"bucket"`
			MinIO   struct {
				Endpoint string `toml:"endpoint"`
			} `toml:"minio"`
		} `toml:"storage"`
	}
	custom := payload{}
	custom.API.Bind = "0.0.0.0:9000"
	custom.YouTube.DefaultLanguage = "en"
	custom.Workflow.JobTimeoutSeconds = 90
	custom.Storage.Backend = "MinIO"
	custom.Storage.Bucket = "voices"
	custom.Storage.MinIO.Endpoint = "localhost:9000"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.API.Bind != "0.0.0.0:9000" {
		t.Fatalf("unexpected bind: %q", cfg.API.Bind)
	}
	if cfg.YouTube.DefaultLanguage != "en" {
		t.Fatalf("unexpected default language: %q", cfg.YouTube.DefaultLanguage)
	}
	if cfg.JobTimeout().Seconds() != 90 {
		t.Fatalf("unexpected job timeout: %s", cfg.JobTimeout())
	}
	if cfg.Storage.Backend != config.StorageMinIO {
		t.Fatalf("expected backend to normalize to minio, got %q", cfg.Storage.Backend)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	isolateHome(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "revoice.toml")
	if err := os.WriteFile(configPath, []byte("[api]\nbind = \"127.0.0.1:8000\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REVOICE_API_BIND", "127.0.0.1:9100")
	t.Setenv("YOUTUBE_API_KEY", " yt-key ")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Bind != "127.0.0.1:9100" {
		t.Fatalf("expected env bind override, got %q", cfg.API.Bind)
	}
	if cfg.YouTube.APIKey != "yt-key" {
		t.Fatalf("expected trimmed env api key, got %q", cfg.YouTube.APIKey)
	}
}

func TestLoadDotEnvBesideConfig(t *testing.T) {
	isolateHome(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "revoice.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"info\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("REVOICE_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("REVOICE_LOG_LEVEL") })

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected .env to set log level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsIncompleteBackends(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "postgres without dsn",
			mutate: func(c *config.Config) { c.Database.Driver = config.DriverPostgres },
			want:   "database.dsn",
		},
		{
			name:   "unknown storage",
			mutate: func(c *config.Config) { c.Storage.Backend = "ftp" },
			want:   "storage.backend",
		},
		{
			name:   "minio without endpoint",
			mutate: func(c *config.Config) { c.Storage.Backend = config.StorageMinIO },
			want:   "storage.minio.endpoint",
		},
		{
			name:   "s3 without region",
			mutate: func(c *config.Config) { c.Storage.Backend = config.StorageS3 },
			want:   "storage.s3.region",
		},
		{
			name:   "redis dedupe without addr",
			mutate: func(c *config.Config) { c.Dedupe.Mode = config.DedupeRedis },
			want:   "dedupe.redis_addr",
		},
		{
			name:   "telemetry without endpoint",
			mutate: func(c *config.Config) { c.Telemetry.Enabled = true },
			want:   "telemetry.otlp_endpoint",
		},
		{
			name:   "bad bind",
			mutate: func(c *config.Config) { c.API.Bind = "nonsense" },
			want:   "api.bind",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Notifications.AMQPExchange != "revoice.events" {
		t.Fatalf("unexpected exchange: %q", cfg.Notifications.AMQPExchange)
	}
	if !cfg.API.Prefixed {
		t.Fatal("expected legacy api prefix enabled in sample")
	}
}
