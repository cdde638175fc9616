package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeYouTube()
	c.normalizeTools()
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizeSpeech()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeDedupe()
	c.normalizeTelemetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.MaxBody <= 0 {
		c.API.MaxBody = defaultMaxBodyBytes
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaultClientTimeout
	}
	if c.API.PollMS <= 0 {
		c.API.PollMS = defaultPollInterval
	}
}

func (c *Config) normalizeDatabase() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "", "sqlite3":
		c.Database.Driver = DriverSQLite
	case "postgresql", "pgx":
		c.Database.Driver = DriverPostgres
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.Driver == DriverPostgres && c.Database.DSN == "" {
		if value, ok := os.LookupEnv("DATABASE_URL"); ok {
			c.Database.DSN = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Database.Path) != "" {
		expanded, err := expandPath(c.Database.Path)
		if err != nil {
			return fmt.Errorf("database.path: %w", err)
		}
		c.Database.Path = expanded
	}
	return nil
}

func (c *Config) normalizeYouTube() {
	c.YouTube.APIKey = strings.TrimSpace(c.YouTube.APIKey)
	c.YouTube.Endpoint = strings.TrimSpace(c.YouTube.Endpoint)
	c.YouTube.DefaultLanguage = strings.TrimSpace(c.YouTube.DefaultLanguage)
	if c.YouTube.DefaultLanguage == "" {
		c.YouTube.DefaultLanguage = defaultSourceLanguage
	}
	if c.YouTube.TimeoutSeconds <= 0 {
		c.YouTube.TimeoutSeconds = defaultYouTubeTimeout
	}
}

func (c *Config) normalizeTools() {
	c.Tools.YTDLP = strings.TrimSpace(c.Tools.YTDLP)
	if c.Tools.YTDLP == "" {
		c.Tools.YTDLP = defaultYTDLP
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.UVX = strings.TrimSpace(c.Tools.UVX)
	if c.Tools.UVX == "" {
		c.Tools.UVX = defaultUVX
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperXModel
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.APIKey = strings.TrimSpace(c.Translation.APIKey)
	if c.Translation.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Translation.APIKey = strings.TrimSpace(value)
		}
	}
	c.Translation.BaseURL = strings.TrimSpace(c.Translation.BaseURL)
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = defaultTranslationBaseURL
	}
	c.Translation.Model = strings.TrimSpace(c.Translation.Model)
	if c.Translation.Model == "" {
		c.Translation.Model = defaultTranslationModel
	}
	if strings.TrimSpace(c.Translation.Title) == "" {
		c.Translation.Title = defaultTranslationTitle
	}
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = defaultTranslationTimeout
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	c.Speech.Endpoint = strings.TrimSpace(c.Speech.Endpoint)
	c.Speech.VoiceGender = strings.ToUpper(strings.TrimSpace(c.Speech.VoiceGender))
	if c.Speech.VoiceGender == "" {
		c.Speech.VoiceGender = defaultVoiceGender
	}
	if c.Speech.SpeakingRate <= 0 {
		c.Speech.SpeakingRate = 1.0
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeout
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = defaultArtifactDir
	}
	var err error
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	c.Storage.MinIO.Endpoint = strings.TrimSpace(c.Storage.MinIO.Endpoint)
	if strings.TrimSpace(c.Storage.MinIO.Region) == "" {
		c.Storage.MinIO.Region = defaultMinIORegion
	}
	c.Storage.S3.Region = strings.TrimSpace(c.Storage.S3.Region)
	c.Storage.S3.Endpoint = strings.TrimSpace(c.Storage.S3.Endpoint)
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.AMQPURL = strings.TrimSpace(c.Notifications.AMQPURL)
	c.Notifications.AMQPExchange = strings.TrimSpace(c.Notifications.AMQPExchange)
	if c.Notifications.AMQPExchange == "" {
		c.Notifications.AMQPExchange = defaultAMQPExchange
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeDedupe() {
	c.Dedupe.Mode = strings.ToLower(strings.TrimSpace(c.Dedupe.Mode))
	if c.Dedupe.Mode == "" {
		c.Dedupe.Mode = defaultDedupeMode
	}
	c.Dedupe.RedisAddr = strings.TrimSpace(c.Dedupe.RedisAddr)
	if c.Dedupe.TTLSeconds <= 0 {
		c.Dedupe.TTLSeconds = defaultDedupeTTLSeconds
	}
}

func (c *Config) normalizeTelemetry() {
	c.Telemetry.Endpoint = strings.TrimSpace(c.Telemetry.Endpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
