package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir" env:"REVOICE_STATE_DIR"`
	WorkDir  string `toml:"work_dir" env:"REVOICE_WORK_DIR"`
	LogDir   string `toml:"log_dir" env:"REVOICE_LOG_DIR"`
}

// API contains the HTTP surface settings shared by the daemon and the CLI client.
type API struct {
	Bind     string `toml:"bind" env:"REVOICE_API_BIND"`
	Token    string `toml:"token" env:"REVOICE_API_TOKEN"`
	BaseURL  string `toml:"base_url" env:"REVOICE_API_URL"`
	MaxBody  int64  `toml:"max_body_bytes"`
	Timeout  int    `toml:"client_timeout_seconds"`
	PollMS   int    `toml:"poll_interval_ms" env:"REVOICE_POLL_INTERVAL_MS"`
	Prefixed bool   `toml:"legacy_api_prefix"`
}

// Database selects the job store backend.
type Database struct {
	Driver string `toml:"driver" env:"REVOICE_DB_DRIVER"`
	Path   string `toml:"path" env:"REVOICE_DB_PATH"`
	DSN    string `toml:"dsn" env:"REVOICE_DB_DSN"`
}

// YouTube contains metadata lookup settings.
type YouTube struct {
	APIKey          string `toml:"api_key" env:"YOUTUBE_API_KEY"`
	Endpoint        string `toml:"endpoint"`
	DefaultLanguage string `toml:"default_language" env:"REVOICE_DEFAULT_LANGUAGE"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Tools names the external binaries used by the extraction and remux stages.
type Tools struct {
	YTDLP  string `toml:"ytdlp" env:"REVOICE_YTDLP"`
	FFmpeg string `toml:"ffmpeg" env:"REVOICE_FFMPEG"`
	UVX    string `toml:"uvx" env:"REVOICE_UVX"`
}

// Transcription contains WhisperX settings.
type Transcription struct {
	Model       string `toml:"whisperx_model"`
	CUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	VADMethod   string `toml:"whisperx_vad_method"`
	HFToken     string `toml:"whisperx_hf_token" env:"HF_TOKEN"`
}

// Translation contains the LLM connection settings used for text translation.
type Translation struct {
	APIKey         string `toml:"api_key" env:"REVOICE_LLM_API_KEY"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model" env:"REVOICE_LLM_MODEL"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Speech contains Google Cloud Text-to-Speech settings.
type Speech struct {
	APIKey         string  `toml:"api_key" env:"GOOGLE_TTS_API_KEY"`
	Endpoint       string  `toml:"endpoint"`
	VoiceGender    string  `toml:"voice_gender"`
	SpeakingRate   float64 `toml:"speaking_rate"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// MinIO contains MinIO/S3-compatible object storage credentials.
type MinIO struct {
	Endpoint  string `toml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey string `toml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `toml:"secret_key" env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `toml:"use_ssl"`
	Region    string `toml:"region"`
}

// S3 contains AWS S3 settings. Credentials come from the default AWS chain.
type S3 struct {
	Region   string `toml:"region" env:"AWS_REGION"`
	Endpoint string `toml:"endpoint"`
}

// Storage selects where finished artifacts are uploaded.
type Storage struct {
	Backend       string `toml:"backend" env:"REVOICE_STORAGE_BACKEND"`
	Bucket        string `toml:"bucket" env:"REVOICE_BUCKET"`
	LocalDir      string `toml:"local_dir"`
	PublicBaseURL string `toml:"public_base_url" env:"REVOICE_PUBLIC_BASE_URL"`
	MinIO         MinIO  `toml:"minio"`
	S3            S3     `toml:"s3"`
}

// Remux controls the optional video re-mux with the synthesized audio.
type Remux struct {
	Enabled bool `toml:"enabled" env:"REVOICE_REMUX"`
}

// Workflow contains orchestration timing and workspace settings.
type Workflow struct {
	JobTimeoutSeconds int  `toml:"job_timeout_seconds"`
	KeepWorkDir       bool `toml:"keep_workdir"`
	RelaunchPending   bool `toml:"relaunch_pending"`
	ShutdownSeconds   int  `toml:"shutdown_timeout_seconds"`
}

// Notifications contains ntfy and AMQP settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" env:"REVOICE_NTFY_TOPIC"`
	RequestTimeout int    `toml:"request_timeout"`
	AMQPURL        string `toml:"amqp_url" env:"REVOICE_AMQP_URL"`
	AMQPExchange   string `toml:"amqp_exchange"`
	Submitted      bool   `toml:"submitted"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
}

// Dedupe controls in-flight submission de-duplication.
type Dedupe struct {
	Mode          string `toml:"mode" env:"REVOICE_DEDUPE"`
	RedisAddr     string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `toml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// Telemetry contains OpenTelemetry exporter settings.
type Telemetry struct {
	Enabled      bool   `toml:"enabled" env:"REVOICE_OTEL_ENABLED"`
	Endpoint     string `toml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool   `toml:"insecure"`
	ServiceName  string `toml:"service_name" env:"OTEL_SERVICE_NAME"`
	ExportLogs   bool   `toml:"export_logs"`
	RuntimeStats bool   `toml:"runtime_metrics"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"REVOICE_LOG_FORMAT"`
	Level  string `toml:"level" env:"REVOICE_LOG_LEVEL"`
}

// Config encapsulates all configuration values for revoice.
//
// Configuration sections by subsystem:
//   - Paths: state, scratch and log directories
//   - API: daemon bind address, bearer token and client defaults
//   - Database: job store driver (sqlite or postgres)
//   - YouTube: metadata lookup and default source language
//   - Tools: yt-dlp, ffmpeg and uvx binaries
//   - Transcription: WhisperX
//   - Translation: LLM chat completions
//   - Speech: Google Text-to-Speech
//   - Storage: artifact uploads (local, minio, s3)
//   - Remux: optional video output
//   - Workflow: orchestration timeouts and workspace handling
//   - Notifications: ntfy and AMQP
//   - Dedupe: in-flight submission guard
//   - Telemetry: OpenTelemetry exporters
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Database      Database      `toml:"database"`
	YouTube       YouTube       `toml:"youtube"`
	Tools         Tools         `toml:"tools"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Speech        Speech        `toml:"speech"`
	Storage       Storage       `toml:"storage"`
	Remux         Remux         `toml:"remux"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Dedupe        Dedupe        `toml:"dedupe"`
	Telemetry     Telemetry     `toml:"telemetry"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Values from a .env
// file and REVOICE_* environment variables override the file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv loads .env files from the config directory and the working
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) error {
	candidates := []string{filepath.Join(configDir, ".env"), ".env"}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("revoice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.WorkDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Storage.LocalDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database file location.
func (c *Config) DatabasePath() string {
	if strings.TrimSpace(c.Database.Path) != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "revoiced.lock")
}

// JobTimeout returns the per-job deadline, or zero when jobs run unbounded.
func (c *Config) JobTimeout() time.Duration {
	if c.Workflow.JobTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Workflow.JobTimeoutSeconds) * time.Second
}

// PollInterval returns the client poll interval.
func (c *Config) PollInterval() time.Duration {
	if c.API.PollMS <= 0 {
		return defaultPollInterval * time.Millisecond
	}
	return time.Duration(c.API.PollMS) * time.Millisecond
}

// ClientBaseURL returns the URL CLI commands use to reach the daemon.
func (c *Config) ClientBaseURL() string {
	if base := strings.TrimSpace(c.API.BaseURL); base != "" {
		return strings.TrimRight(base, "/")
	}
	return "http://" + c.API.Bind
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
