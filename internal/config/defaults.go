package config

const (
	defaultConfigPath          = "~/.config/revoice/config.toml"
	defaultStateDir            = "~/.local/share/revoice"
	defaultWorkDir             = "~/.local/share/revoice/work"
	defaultLogDir              = "~/.local/share/revoice/logs"
	defaultArtifactDir         = "~/.local/share/revoice/artifacts"
	defaultAPIBind             = "127.0.0.1:7488"
	defaultMaxBodyBytes        = 1 << 20
	defaultClientTimeout       = 15
	defaultPollInterval        = 2000
	defaultSourceLanguage      = "pt-BR"
	defaultYouTubeTimeout      = 10
	defaultYTDLP               = "yt-dlp"
	defaultFFmpeg              = "ffmpeg"
	defaultUVX                 = "uvx"
	defaultWhisperXModel       = "large-v3"
	defaultVADMethod           = "silero"
	defaultTranslationBaseURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultTranslationModel    = "google/gemini-3-flash-preview"
	defaultTranslationReferer  = "https://github.com/revoice/revoice"
	defaultTranslationTitle    = "revoice translator"
	defaultTranslationTimeout  = 120
	defaultVoiceGender         = "NEUTRAL"
	defaultSpeechTimeout       = 60
	defaultBucket              = "revoice"
	defaultAMQPExchange        = "revoice.events"
	defaultNtfyTimeout         = 10
	defaultDedupeTTLSeconds    = 6 * 60 * 60
	defaultServiceName         = "revoice"
	defaultShutdownSeconds     = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultMinIORegion         = "us-east-1"
	defaultDatabaseDriver      = DriverSQLite
	defaultStorageBackend      = StorageLocal
	defaultDedupeMode          = DedupeOff
	defaultRelaunchPending     = true
	defaultNotifyOnSubmission  = false
	defaultNotifyOnCompletion  = true
	defaultNotifyOnErrors      = true
	defaultLegacyAPIPrefix     = true
	defaultRuntimeMetrics      = true
	defaultTelemetryExportLogs = true
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageMinIO = "minio"
	StorageS3    = "s3"
)

// Dedupe modes.
const (
	DedupeOff    = "off"
	DedupeMemory = "memory"
	DedupeRedis  = "redis"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
		},
		API: API{
			Bind:     defaultAPIBind,
			MaxBody:  defaultMaxBodyBytes,
			Timeout:  defaultClientTimeout,
			PollMS:   defaultPollInterval,
			Prefixed: defaultLegacyAPIPrefix,
		},
		Database: Database{
			Driver: defaultDatabaseDriver,
		},
		YouTube: YouTube{
			DefaultLanguage: defaultSourceLanguage,
			TimeoutSeconds:  defaultYouTubeTimeout,
		},
		Tools: Tools{
			YTDLP:  defaultYTDLP,
			FFmpeg: defaultFFmpeg,
			UVX:    defaultUVX,
		},
		Transcription: Transcription{
			Model:     defaultWhisperXModel,
			VADMethod: defaultVADMethod,
		},
		Translation: Translation{
			BaseURL:        defaultTranslationBaseURL,
			Model:          defaultTranslationModel,
			Referer:        defaultTranslationReferer,
			Title:          defaultTranslationTitle,
			TimeoutSeconds: defaultTranslationTimeout,
		},
		Speech: Speech{
			VoiceGender:    defaultVoiceGender,
			SpeakingRate:   1.0,
			TimeoutSeconds: defaultSpeechTimeout,
		},
		Storage: Storage{
			Backend:  defaultStorageBackend,
			Bucket:   defaultBucket,
			LocalDir: defaultArtifactDir,
			MinIO: MinIO{
				Region: defaultMinIORegion,
			},
		},
		Workflow: Workflow{
			RelaunchPending: defaultRelaunchPending,
			ShutdownSeconds: defaultShutdownSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			AMQPExchange:   defaultAMQPExchange,
			Submitted:      defaultNotifyOnSubmission,
			Completed:      defaultNotifyOnCompletion,
			Errors:         defaultNotifyOnErrors,
		},
		Dedupe: Dedupe{
			Mode:       defaultDedupeMode,
			TTLSeconds: defaultDedupeTTLSeconds,
		},
		Telemetry: Telemetry{
			ServiceName:  defaultServiceName,
			ExportLogs:   defaultTelemetryExportLogs,
			RuntimeStats: defaultRuntimeMetrics,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
