package whisperx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"revoice/internal/language"
	"revoice/internal/services"
	"revoice/internal/stage"
)

// Service runs WhisperX transcription.
type Service struct {
	cfg    Config
	runner services.CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = UVXCommand
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.VADMethod) == "" {
		cfg.VADMethod = VADMethodSilero
	}
	return &Service{cfg: cfg, runner: runTorch}
}

// WithCommandRunner swaps the process runner (for testing).
func (s *Service) WithCommandRunner(runner services.CommandRunner) *Service {
	if runner != nil {
		s.runner = runner
	}
	return s
}

// Model returns the configured model name.
func (s *Service) Model() string { return s.cfg.Model }

// Transcribe produces transcript text for audioPath spoken in lang. Output
// files land next to the audio in a "transcript" directory.
func (s *Service) Transcribe(ctx context.Context, audioPath, lang string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", services.Wrap(services.ErrValidation, stage.Transcribe, "whisperx", "audio path required", nil)
	}
	outputDir := filepath.Join(filepath.Dir(audioPath), "transcript")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("whisperx: ensure output dir: %w", err)
	}

	if err := s.runner(ctx, s.cfg.Binary, s.buildArgs(audioPath, outputDir, lang)...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribe, "whisperx", "transcription failed", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	segments, err := LoadSegments(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribe, "whisperx", "read transcript", err)
	}
	text := JoinSegments(segments)
	if text == "" {
		return "", services.Wrap(services.ErrExternalTool, stage.Transcribe, "whisperx", "no speech detected", nil)
	}
	return text, nil
}

// HealthCheck verifies the uvx launcher is available.
func (s *Service) HealthCheck(context.Context) stage.Health {
	if err := services.LookPath(s.cfg.Binary); err != nil {
		return stage.Unhealthy(stage.Transcribe, err.Error())
	}
	return stage.Healthy(stage.Transcribe)
}

func (s *Service) buildArgs(source, outputDir, lang string) []string {
	args := make([]string, 0, 40)
	if s.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", s.cfg.Model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--vad_method", s.cfg.VADMethod,
	)
	if s.cfg.VADMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}
	if code := language.Base(lang); code != "" {
		args = append(args, "--language", code)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// runTorch is RunCommand with the torch checkpoint loading override that
// whisperx and pyannote need on torch >= 2.6.
func runTorch(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		out := strings.TrimSpace(string(output))
		if len(out) > 600 {
			out = "..." + out[len(out)-600:]
		}
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}
