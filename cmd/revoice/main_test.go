package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"revoice/internal/api"
	"revoice/internal/daemon"
	"revoice/internal/jobs"
	"revoice/internal/testsupport"
	"revoice/internal/workflow"
)

type cliTestEnv struct {
	store      *jobs.Store
	pipeline   *testsupport.Pipeline
	server     *httptest.Server
	configPath string
}

func setupCLITestEnv(t *testing.T, pipeline *testsupport.Pipeline) *cliTestEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("REVOICE_POLL_INTERVAL_MS", "10")

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
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
	d, err := daemon.New(cfg, store, mgr, api.NewGateway(store, mgr), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.Handler())
	t.Cleanup(func() {
		server.Close()
		pipeline.Release()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	})

	return &cliTestEnv{
		store:      store,
		pipeline:   pipeline,
		server:     server,
		configPath: filepath.Join(home, "missing.toml"),
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--api", e.server.URL, "--config", e.configPath}, args...))
}

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestSubmitWaitPrintsResult(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.NewPipeline())

	out, err := env.run(t, "submit", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "--language", "es", "--wait")
	if err != nil {
		t.Fatalf("submit --wait: %v\n%s", err, out)
	}
	requireContains(t, out, "Status:")
	requireContains(t, out, "done")
	requireContains(t, out, "synthesized_audio_dQw4w9WgXcQ_es.mp3")
}

func TestSubmitJSONThenStatusAndLookup(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.NewPipeline())

	out, err := env.run(t, "submit", "https://youtu.be/dQw4w9WgXcQ", "-l", "fr", "--json")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var resp api.SubmitResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode submit output %q: %v", out, err)
	}
	if resp.JobID == "" {
		t.Fatalf("missing job id in %s", out)
	}

	out, err = env.run(t, "watch", resp.JobID, "--json")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	var record api.JobRecord
	if err := json.Unmarshal([]byte(out), &record); err != nil {
		t.Fatalf("decode watch output %q: %v", out, err)
	}
	if record.Status != "done" {
		t.Fatalf("expected done, got %+v", record)
	}

	out, err = env.run(t, "status", resp.JobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, resp.JobID)

	out, err = env.run(t, "lookup", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "-l", "fr")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	requireContains(t, out, resp.JobID)

	out, err = env.run(t, "jobs", "--status", "done")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, resp.JobID[:8])
}

func TestWatchReportsFailedJob(t *testing.T) {
	pipeline := testsupport.NewPipeline()
	pipeline.FailAt = "transcribe"
	env := setupCLITestEnv(t, pipeline)

	_, err := env.run(t, "submit", "https://youtu.be/dQw4w9WgXcQ", "-l", "de", "--wait")
	if err == nil {
		t.Fatal("expected failed job to surface as an error")
	}
	requireContains(t, err.Error(), "failed")
}

func TestCommandErrors(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.NewPipeline())

	if _, err := env.run(t, "submit", "https://youtu.be/dQw4w9WgXcQ"); err == nil {
		t.Fatal("expected missing --language to fail")
	}
	_, err := env.run(t, "submit", "https://example.com/video", "-l", "es")
	if err == nil {
		t.Fatal("expected invalid source to fail")
	}
	requireContains(t, err.Error(), "400")

	_, err = env.run(t, "status", "does-not-exist")
	if err == nil {
		t.Fatal("expected unknown job to fail")
	}
	requireContains(t, err.Error(), "404")

	_, err = env.run(t, "lookup", "https://youtu.be/dQw4w9WgXcQ", "-l", "ja")
	if err == nil {
		t.Fatal("expected lookup without a done job to fail")
	}
	requireContains(t, err.Error(), "404")
}

func TestJobsEmptyAndHealth(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.NewPipeline())

	out, err := env.run(t, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "No jobs")

	out, err = env.run(t, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	requireContains(t, out, "Daemon:")
	requireContains(t, out, "[OK]")
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, err = runCLI(t, []string{"--config", target, "config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}
