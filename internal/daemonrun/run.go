package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"revoice/internal/api"
	"revoice/internal/artifacts"
	"revoice/internal/config"
	"revoice/internal/daemon"
	"revoice/internal/dedupe"
	"revoice/internal/deps"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/notifications"
	"revoice/internal/services/ffmpeg"
	"revoice/internal/services/llm"
	"revoice/internal/services/tts"
	"revoice/internal/services/whisperx"
	"revoice/internal/services/youtube"
	"revoice/internal/services/ytdlp"
	"revoice/internal/telemetry"
	"revoice/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level from the config when set.
	LogLevel string
}

// Runtime holds a fully wired daemon and the resources it owns.
type Runtime struct {
	Daemon    *daemon.Daemon
	Logger    *slog.Logger
	Telemetry *telemetry.Providers

	notifier notifications.Service
	guard    dedupe.Guard
	closers  []io.Closer
}

// Run starts the revoice daemon and blocks until ctx ends or SIGINT/SIGTERM
// arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if lvl := strings.TrimSpace(opts.LogLevel); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	rt, err := Build(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("daemon bootstrap failed", logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_bootstrap_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and job store access"))
		return err
	}
	defer rt.Close()

	pidPath := filepath.Join(cfg.Paths.StateDir, "revoiced.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logDependencySnapshot(rt.Logger, cfg)
	if err := rt.Daemon.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	rt.Logger.Info("revoice daemon shutting down")
	return nil
}

// Build wires the job store, pipeline capabilities, workflow manager, gateway
// and daemon from cfg. The caller owns the returned runtime and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	providers, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if providers.LogHandler != nil {
		logger = logging.TeeLogger(logger, providers.LogHandler)
	}
	rt := &Runtime{Logger: logger, Telemetry: providers}

	caps, err := BuildCapabilities(ctx, cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = caps.Closers()
	stages, err := workflow.Stages(caps)
	if err != nil {
		rt.Close()
		return nil, err
	}

	guard, err := dedupe.New(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.guard = guard
	rt.notifier = notifications.NewService(cfg, logger)

	store, err := jobs.Open(cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open job store: %w", err)
	}

	mgr, err := workflow.NewManager(cfg, store, stages,
		workflow.WithLogger(logger),
		workflow.WithNotifier(rt.notifier),
		workflow.WithDedupe(guard),
		workflow.WithTelemetry(providers),
	)
	if err != nil {
		_ = store.Close()
		rt.Close()
		return nil, err
	}
	gateway := api.NewGateway(store, mgr,
		api.WithGuard(guard),
		api.WithNotifier(rt.notifier),
		api.WithLogger(logger),
	)
	d, err := daemon.New(cfg, store, mgr, gateway, logger)
	if err != nil {
		_ = store.Close()
		rt.Close()
		return nil, err
	}
	rt.Daemon = d
	return rt, nil
}

// BuildCapabilities constructs the external adapters behind each pipeline
// stage. The video composer is only built when remux is enabled.
func BuildCapabilities(ctx context.Context, cfg *config.Config, logger *slog.Logger) (workflow.Capabilities, error) {
	uploader, err := artifacts.New(ctx, cfg)
	if err != nil {
		return workflow.Capabilities{}, err
	}
	metadata, err := youtube.NewMetadataClient(ctx, youtube.Config{
		APIKey:          cfg.YouTube.APIKey,
		Endpoint:        cfg.YouTube.Endpoint,
		DefaultLanguage: cfg.YouTube.DefaultLanguage,
		TimeoutSeconds:  cfg.YouTube.TimeoutSeconds,
	}, youtube.WithLogger(logger))
	if err != nil {
		return workflow.Capabilities{}, err
	}
	synth, err := tts.New(ctx, tts.ConfigFrom(cfg), tts.WithLogger(logger))
	if err != nil {
		return workflow.Capabilities{}, err
	}
	extractor := ytdlp.New(cfg.Tools.YTDLP)
	caps := workflow.Capabilities{
		Metadata:        metadata,
		Extractor:       extractor,
		Transcriber:     whisperx.NewService(whisperx.ConfigFrom(cfg)),
		Translator:      llm.NewTranslator(llm.NewClient(llm.ConfigFrom(cfg)), logger),
		Synthesizer:     synth,
		Uploader:        uploader,
		DefaultLanguage: cfg.YouTube.DefaultLanguage,
	}
	if cfg.Remux.Enabled {
		caps.Composer = ffmpeg.NewComposer(cfg.Tools.FFmpeg, extractor)
	}
	return caps, nil
}

// Close releases the notifier, dedupe guard, capability clients, job store
// and telemetry exporters. The daemon is stopped first when it is running.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.Daemon != nil {
		if err := r.Daemon.Close(); err != nil {
			r.Logger.Warn("close job store", logging.Error(err))
		}
	}
	if r.notifier != nil {
		_ = r.notifier.Close()
	}
	if r.guard != nil {
		_ = r.guard.Close()
	}
	for _, c := range r.closers {
		_ = c.Close()
	}
	if r.Telemetry != nil {
		_ = r.Telemetry.Shutdown(context.Background())
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("remux_enabled", cfg.Remux.Enabled),
		logging.Bool("youtube_key_present", strings.TrimSpace(cfg.YouTube.APIKey) != ""),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.Translation.APIKey) != ""),
		logging.Bool("tts_key_present", strings.TrimSpace(cfg.Speech.APIKey) != ""),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("db_driver", cfg.Database.Driver),
		logging.String("dedupe_mode", cfg.Dedupe.Mode),
	}
	for _, s := range statuses {
		attrs = append(attrs, logging.Bool(s.Name+"_available", s.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, s := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required binary unavailable", "dependency_missing",
			logging.String("dependency", s.Name),
			logging.String("detail", s.Detail),
			logging.String(logging.FieldErrorHint, "install "+s.Name+" or set its path under [tools]"))
	}
}
