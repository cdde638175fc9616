// Package fileutil holds file copy helpers shared by artifact backends.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReplaceFile copies src over dst. The copy is written to a temp file next to
// dst and renamed into place, so readers never observe a partial artifact and
// an existing dst is replaced whole. The written size is checked against src.
func ReplaceFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	written, err := io.Copy(tmp, in)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if written != info.Size() {
		cleanup()
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		cleanup()
		return err
	}
	return nil
}
