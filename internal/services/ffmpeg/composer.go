package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/services"
	"revoice/internal/stage"
)

const (
	DefaultBinary = "ffmpeg"
	// OutputFile is the re-muxed video name inside a work dir.
	OutputFile = "revoiced.mp4"
)

// VideoDownloader fetches the source video into a work directory.
type VideoDownloader interface {
	DownloadVideo(ctx context.Context, sourceURL, workDir string) (string, error)
}

// Composer replaces the audio track of the source video. The video stream is
// copied, never re-encoded.
type Composer struct {
	binary     string
	downloader VideoDownloader
	runner     services.CommandRunner
}

// NewComposer returns a Composer using binary (defaults to ffmpeg on PATH).
func NewComposer(binary string, downloader VideoDownloader) *Composer {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Composer{binary: binary, downloader: downloader, runner: services.RunCommand}
}

// WithCommandRunner swaps the process runner (for testing).
func (c *Composer) WithCommandRunner(runner services.CommandRunner) *Composer {
	if runner != nil {
		c.runner = runner
	}
	return c
}

// Compose downloads sourceURL and muxes audioPath over its video stream.
func (c *Composer) Compose(ctx context.Context, sourceURL, audioPath, workDir string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", services.Wrap(services.ErrValidation, stage.Upload, "compose", "audio path required", nil)
	}
	if c.downloader == nil {
		return "", services.Wrap(services.ErrConfiguration, stage.Upload, "compose", "no video downloader configured", nil)
	}
	videoPath, err := c.downloader.DownloadVideo(ctx, sourceURL, workDir)
	if err != nil {
		return "", err
	}

	output := filepath.Join(workDir, OutputFile)
	if err := c.runner(ctx, c.binary, BuildArgs(videoPath, audioPath, output)...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalTool, stage.Upload, "compose", "ffmpeg mux failed", err)
	}
	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrExternalTool, stage.Upload, "compose", "ffmpeg produced no output", err)
	}
	return output, nil
}

// HealthCheck verifies the ffmpeg binary is available.
func (c *Composer) HealthCheck(context.Context) stage.Health {
	const name = "remux"
	if err := services.LookPath(c.binary); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// BuildArgs returns the ffmpeg arguments that keep the first video stream
// of videoPath and take audio from audioPath, trimmed to the shorter input.
func BuildArgs(videoPath, audioPath, output string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		output,
	}
}
