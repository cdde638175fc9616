package youtube_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"revoice/internal/services"
	"revoice/internal/services/youtube"
)

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":              "dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42":             "dQw4w9WgXcQ",
		"youtube.com/watch?v=dQw4w9WgXcQ":                          "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                             "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc":                      "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":                "dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ":                    "dQw4w9WgXcQ",
		"https://m.youtube.com/shorts/dQw4w9WgXcQ":                 "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"  https://youtu.be/abc123  ":                              "abc123",
		"https://vimeo.com/12345":                                  "",
		"not a url":                                                "",
		"":                                                         "",
	}
	for input, want := range cases {
		if got := youtube.ExtractVideoID(input); got != want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWatchURL(t *testing.T) {
	if got := youtube.WatchURL("abc"); got != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("WatchURL = %q", got)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg youtube.Config) *youtube.MetadataClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	ctx := context.Background()
	service, err := ytapi.NewService(ctx,
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	client, err := youtube.NewMetadataClient(ctx, cfg, youtube.WithService(service))
	if err != nil {
		t.Fatalf("NewMetadataClient: %v", err)
	}
	return client
}

func TestResolvePrefersAudioLanguage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/videos") {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("id") != "vid1" || q.Get("part") != "snippet" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"snippet":{"title":"T","channelTitle":"C","defaultLanguage":"en","defaultAudioLanguage":"es-419"}}]}`))
	}, youtube.Config{})

	meta, err := client.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.OriginalLanguage != "es-419" || meta.Title != "T" || meta.Channel != "C" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if h := client.HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected healthy client, got %+v", h)
	}
}

func TestResolveFallsBackToDefaultLanguage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"snippet":{"title":"T"}}]}`))
	}, youtube.Config{DefaultLanguage: "fr"})

	meta, err := client.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.OriginalLanguage != "fr" {
		t.Fatalf("language = %q, want fr", meta.OriginalLanguage)
	}
}

func TestResolveWithoutKeyUsesDefault(t *testing.T) {
	client, err := youtube.NewMetadataClient(context.Background(), youtube.Config{})
	if err != nil {
		t.Fatalf("NewMetadataClient: %v", err)
	}
	meta, err := client.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.OriginalLanguage != "pt-BR" {
		t.Fatalf("language = %q, want pt-BR", meta.OriginalLanguage)
	}
	if h := client.HealthCheck(context.Background()); h.Ready {
		t.Fatal("expected unhealthy without api key")
	}
}

func TestResolveErrors(t *testing.T) {
	empty := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}, youtube.Config{})
	if _, err := empty.Resolve(context.Background(), "gone"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	forbidden := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	}, youtube.Config{})
	_, err := forbidden.Resolve(context.Background(), "v")
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected configuration error, got %v", err)
	}

	if _, err := empty.Resolve(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
