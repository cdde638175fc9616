package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"revoice/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extract", "yt-dlp", "download failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "yt-dlp", "download failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestDetailsClassifiesMarkers(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{services.Wrap(services.ErrValidation, "gateway", "submit", "bad url", nil), "validation"},
		{services.Wrap(services.ErrConfiguration, "speech", "", "missing key", nil), "configuration"},
		{fmt.Errorf("stage: %w", context.DeadlineExceeded), "timeout"},
		{services.Wrap(services.ErrExternalTool, "extract", "", "", nil), "external_tool"},
		{errors.New("socket closed"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Details(tc.err).Kind; got != tc.kind {
			t.Fatalf("Details(%v).Kind = %q, want %q", tc.err, got, tc.kind)
		}
	}
	if d := services.Details(nil); d.Kind != "" {
		t.Fatalf("expected empty details for nil, got %+v", d)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[error]int{
		services.Wrap(services.ErrValidation, "", "", "x", nil): http.StatusBadRequest,
		services.Wrap(services.ErrNotFound, "", "", "x", nil):   http.StatusNotFound,
		services.Wrap(services.ErrConflict, "", "", "x", nil):   http.StatusConflict,
		errors.New("disk full"):                                 http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := services.HTTPStatus(err); got != want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", err, got, want)
		}
	}
}
