package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails summarizes an error for logs and API responses.
type ErrorDetails struct {
	Kind    string
	Message string
	Hint    string
}

// Details classifies err by its marker.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	d := ErrorDetails{Message: err.Error()}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		d.Kind, d.Hint = "timeout", "raise workflow.job_timeout_seconds or check upstream latency"
	case errors.Is(err, context.Canceled):
		d.Kind, d.Hint = "canceled", "job was interrupted before it finished"
	case errors.Is(err, ErrValidation):
		d.Kind, d.Hint = "validation", "check the submitted source and language"
	case errors.Is(err, ErrConfiguration):
		d.Kind, d.Hint = "configuration", "check credentials and endpoints in the config file"
	case errors.Is(err, ErrNotFound):
		d.Kind, d.Hint = "not_found", "verify the identifier exists"
	case errors.Is(err, ErrConflict):
		d.Kind, d.Hint = "conflict", "an equivalent job is already in flight"
	case errors.Is(err, ErrExternalTool):
		d.Kind, d.Hint = "external_tool", "verify yt-dlp, ffmpeg and uvx are installed and on PATH"
	default:
		d.Kind, d.Hint = "transient", "check network access to the upstream service"
	}
	return d
}

// HTTPStatus maps err to the response code the daemon API should return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
