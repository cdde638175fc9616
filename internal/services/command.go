package services

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external binary. Adapters accept one so tests can
// observe arguments and fake outputs without the real tools installed.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// RunCommand is the default CommandRunner. Combined output is attached to the
// error so tool diagnostics reach the job's error message.
func RunCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := tail(strings.TrimSpace(string(output)), 600)
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Killed by cancellation; keep ctx.Err in the chain.
			return fmt.Errorf("%s: %w: %w: %s", name, ctxErr, err, detail)
		}
		return fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return nil
}

// LookPath reports whether binary resolves on PATH.
func LookPath(binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", binary, err)
	}
	return nil
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
