// Package deps reports which external binaries the pipeline can reach.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"revoice/internal/config"
)

// Requirement defines an external binary revoice relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured pipeline invokes. ffmpeg is
// only required when remux is enabled.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.Tools.YTDLP, Description: "audio and video download"},
		{Name: "uvx", Command: cfg.Tools.UVX, Description: "runs whisperx for transcription"},
		{Name: "ffmpeg", Command: cfg.Tools.FFmpeg, Description: "video remux", Optional: !cfg.Remux.Enabled},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
