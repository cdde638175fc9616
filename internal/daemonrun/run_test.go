package daemonrun_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"revoice/internal/client"
	"revoice/internal/config"
	"revoice/internal/daemonrun"
	"revoice/internal/stage"
	"revoice/internal/testsupport"
)

func TestBuildCapabilitiesWiresEveryStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	caps, err := daemonrun.BuildCapabilities(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("BuildCapabilities: %v", err)
	}
	if caps.Metadata == nil || caps.Extractor == nil || caps.Transcriber == nil ||
		caps.Translator == nil || caps.Synthesizer == nil || caps.Uploader == nil {
		t.Fatalf("missing capability: %+v", caps)
	}
	if caps.Composer != nil {
		t.Fatal("composer should be nil when remux is disabled")
	}

	cfg.Remux.Enabled = true
	caps, err = daemonrun.BuildCapabilities(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("BuildCapabilities with remux: %v", err)
	}
	if caps.Composer == nil {
		t.Fatal("expected composer when remux is enabled")
	}
}

func TestBuildCapabilitiesRejectsUnknownStorage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Backend = "ftp"
	if _, err := daemonrun.BuildCapabilities(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestBuildStartsServingDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if cfg.Database.Driver != config.DriverSQLite {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Database.Driver)
	}
	ctx := context.Background()
	rt, err := daemonrun.Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if err := rt.Daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := rt.Daemon.Addr()
	if addr == "" {
		t.Fatal("expected listening address")
	}

	c := client.New("http://"+addr, client.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" || health.Store != config.DriverSQLite {
		t.Fatalf("unexpected health: %+v", health)
	}
	if !health.Workflow.Started {
		t.Fatalf("expected workflow started: %+v", health.Workflow)
	}
	found := false
	for _, h := range health.Workflow.StageHealth {
		if h.Name == stage.Upload {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected upload stage health in %+v", health.Workflow.StageHealth)
	}

	list, err := c.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty job list, got %d", len(list))
	}
}

func TestBuildRejectsUnknownDedupeMode(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDedupe("carrier-pigeon"))
	if _, err := daemonrun.Build(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown dedupe mode")
	}
}
