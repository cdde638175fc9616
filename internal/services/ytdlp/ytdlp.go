package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/services"
	"revoice/internal/stage"
)

// Output file names inside a job work directory.
const (
	AudioFile = "audio.mp3"
	VideoFile = "video.mp4"

	DefaultBinary = "yt-dlp"
)

// Extractor downloads media with yt-dlp.
type Extractor struct {
	binary string
	runner services.CommandRunner
}

// New returns an Extractor using binary (defaults to yt-dlp on PATH).
func New(binary string) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Extractor{binary: binary, runner: services.RunCommand}
}

// WithCommandRunner swaps the process runner (for testing).
func (e *Extractor) WithCommandRunner(runner services.CommandRunner) *Extractor {
	if runner != nil {
		e.runner = runner
	}
	return e
}

// ExtractAudio downloads the best audio stream of sourceURL and converts it
// to MP3. It returns the path of the written file.
func (e *Extractor) ExtractAudio(ctx context.Context, sourceURL, workDir string) (string, error) {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-x",
		"--audio-format", "mp3",
		"-o", filepath.Join(workDir, "audio.%(ext)s"),
		sourceURL,
	}
	return e.fetch(ctx, stage.Extract, "extract audio", sourceURL, workDir, AudioFile, args)
}

// DownloadVideo downloads sourceURL as an MP4 container.
func (e *Extractor) DownloadVideo(ctx context.Context, sourceURL, workDir string) (string, error) {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b",
		"--merge-output-format", "mp4",
		"-o", filepath.Join(workDir, "video.%(ext)s"),
		sourceURL,
	}
	return e.fetch(ctx, stage.Upload, "download video", sourceURL, workDir, VideoFile, args)
}

// HealthCheck verifies the yt-dlp binary is available.
func (e *Extractor) HealthCheck(context.Context) stage.Health {
	if err := services.LookPath(e.binary); err != nil {
		return stage.Unhealthy(stage.Extract, err.Error())
	}
	return stage.Healthy(stage.Extract)
}

func (e *Extractor) fetch(ctx context.Context, stageName, op, sourceURL, workDir, name string, args []string) (string, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return "", services.Wrap(services.ErrValidation, stageName, op, "source url required", nil)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("%s: ensure work dir: %w", op, err)
	}
	if err := e.runner(ctx, e.binary, args...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalTool, stageName, op, "yt-dlp failed", err)
	}
	path := filepath.Join(workDir, name)
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrExternalTool, stageName, op, "yt-dlp produced no "+name, err)
	}
	return path, nil
}
