package stage

import (
	"strings"

	"revoice/internal/services"
)

// RequireInput returns a validation error when a value an earlier stage should
// have produced is empty.
func RequireInput(stageName, field, value string) error {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	return services.Wrap(services.ErrValidation, stageName, "input",
		field+" missing; earlier stage produced no output", nil)
}
