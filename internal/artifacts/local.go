package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"revoice/internal/fileutil"
	"revoice/internal/services"
	"revoice/internal/stage"
)

// Local copies artifacts into a directory, typically one served by a
// static file server at publicBaseURL.
type Local struct {
	dir           string
	publicBaseURL string
}

// NewLocal returns a directory-backed uploader. Without a public base URL the
// returned reference is a file:// URL.
func NewLocal(dir, publicBaseURL string) *Local {
	return &Local{dir: dir, publicBaseURL: publicBaseURL}
}

// Upload copies localPath to dir/name atomically.
func (l *Local) Upload(_ context.Context, localPath, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	dest := filepath.Join(l.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("local upload: ensure dir: %w", err)
	}
	if err := fileutil.ReplaceFile(localPath, dest); err != nil {
		return "", services.Wrap(services.ErrTransient, stage.Upload, "local upload", name, err)
	}
	if l.publicBaseURL != "" {
		return publicURL(l.publicBaseURL, name), nil
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		abs = dest
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// HealthCheck verifies the target directory is writable.
func (l *Local) HealthCheck(context.Context) stage.Health {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return stage.Unhealthy(stage.Upload, err.Error())
	}
	probe, err := os.CreateTemp(l.dir, ".probe-*")
	if err != nil {
		return stage.Unhealthy(stage.Upload, "artifact dir not writable: "+err.Error())
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return stage.Healthy(stage.Upload)
}
