package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"revoice/internal/api"
	"revoice/internal/client"
	"revoice/internal/daemon"
	"revoice/internal/jobs"
	"revoice/internal/poller"
	"revoice/internal/services"
	"revoice/internal/testsupport"
	"revoice/internal/workflow"
)

func newServer(t *testing.T, opts ...testsupport.ConfigOption) (*httptest.Server, *jobs.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	pipeline := testsupport.NewPipeline()
	stages, err := workflow.Stages(workflow.Capabilities{
		Metadata:    pipeline,
		Extractor:   pipeline,
		Transcriber: pipeline,
		Translator:  pipeline,
		Synthesizer: pipeline,
		Uploader:    pipeline,
	})
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	mgr, err := workflow.NewManager(cfg, store, stages)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	})
	d, err := daemon.New(cfg, store, mgr, api.NewGateway(store, mgr), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.Handler())
	t.Cleanup(server.Close)
	return server, store, cfg.API.Token
}

func TestClientSubmitAndWait(t *testing.T) {
	server, _, token := newServer(t)
	c := client.New(server.URL, client.WithHTTPClient(server.Client()), client.WithToken(token))
	ctx := context.Background()

	resp, err := c.Submit(ctx, api.SubmitRequest{Source: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Language: "es"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected job id")
	}

	var seen []string
	p := poller.Poller{
		Interval: 10 * time.Millisecond,
		Fetch:    c.Job,
		OnUpdate: func(r api.JobRecord) { seen = append(seen, r.Status) },
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	record, err := p.Wait(waitCtx, resp.JobID)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if record.Status != "done" || record.Result == nil || record.Result.AudioURL == "" {
		t.Fatalf("unexpected final record: %+v", record)
	}
	if len(seen) == 0 || seen[len(seen)-1] != "done" {
		t.Fatalf("expected updates ending in done, got %v", seen)
	}

	latest, err := c.LatestCompleted(ctx, "https://youtu.be/dQw4w9WgXcQ", "es")
	if err != nil {
		t.Fatalf("LatestCompleted: %v", err)
	}
	if latest.ID != resp.JobID {
		t.Fatalf("latest id = %q, want %q", latest.ID, resp.JobID)
	}

	list, err := c.List(ctx, []string{"done"}, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != resp.JobID {
		t.Fatalf("unexpected list: %+v", list)
	}

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" || health.Store == "" {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestClientMapsErrorResponses(t *testing.T) {
	server, _, token := newServer(t)
	c := client.New(server.URL, client.WithHTTPClient(server.Client()), client.WithToken(token))
	ctx := context.Background()

	_, err := c.Job(ctx, "no-such-job")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected APIError 404, got %#v", err)
	}

	_, err = c.Submit(ctx, api.SubmitRequest{Language: "es"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.As(err, &apiErr) || apiErr.Message == "" || apiErr.Kind != "validation" {
		t.Fatalf("expected decoded error body, got %#v", apiErr)
	}

	_, err = c.LatestCompleted(ctx, "https://youtu.be/dQw4w9WgXcQ", "fr")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing translation, got %v", err)
	}
}

func TestClientRequiresToken(t *testing.T) {
	server, _, _ := newServer(t, testsupport.WithAPIToken("secret"))
	ctx := context.Background()

	anon := client.New(server.URL, client.WithHTTPClient(server.Client()))
	_, err := anon.List(ctx, nil, 0)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}

	authed := client.New(server.URL+"/", client.WithHTTPClient(server.Client()), client.WithToken(" secret "))
	if _, err := authed.List(ctx, nil, 0); err != nil {
		t.Fatalf("authorized List: %v", err)
	}
}

func TestClientHealthReturnsDegradedReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded","pid":42,"store":"sqlite","storeError":"disk gone"}`))
	}))
	defer server.Close()

	c := client.New(server.URL, client.WithHTTPClient(server.Client()))
	health, err := c.Health(context.Background())
	if err == nil {
		t.Fatal("expected error for degraded daemon")
	}
	if health == nil || health.Status != "degraded" || health.PID != 42 {
		t.Fatalf("expected degraded report, got %+v", health)
	}
}
