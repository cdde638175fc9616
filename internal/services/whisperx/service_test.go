package whisperx_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"revoice/internal/services"
	"revoice/internal/services/whisperx"
)

func argValue(args []string, flag string) string {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}
	return args[idx+1]
}

func TestTranscribeJoinsSegmentsInOrder(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.mp3")
	if err := os.WriteFile(audio, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	var gotName string
	var gotArgs []string
	svc := whisperx.NewService(whisperx.Config{}).WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		out := argValue(args, "--output_dir")
		payload := `{"segments":[{"text":" world ","start":2.5},{"text":"hello","start":0.1},{"text":"  ","start":3}]}`
		return os.WriteFile(filepath.Join(out, "audio.json"), []byte(payload), 0o644)
	})

	text, err := svc.Transcribe(context.Background(), audio, "pt-BR")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q, want %q", text, "hello world")
	}
	if gotName != whisperx.UVXCommand {
		t.Fatalf("binary = %q", gotName)
	}
	if lang := argValue(gotArgs, "--language"); lang != "pt" {
		t.Fatalf("--language = %q, want pt", lang)
	}
	if model := argValue(gotArgs, "--model"); model != whisperx.DefaultModel {
		t.Fatalf("--model = %q", model)
	}
	if device := argValue(gotArgs, "--device"); device != whisperx.CPUDevice {
		t.Fatalf("--device = %q", device)
	}
}

func TestTranscribeCUDAAndPyannoteFlags(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "a.mp3")
	var gotArgs []string
	svc := whisperx.NewService(whisperx.Config{
		CUDAEnabled: true,
		VADMethod:   whisperx.VADMethodPyannote,
		HFToken:     "hf_123",
	}).WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		gotArgs = args
		return os.WriteFile(filepath.Join(argValue(args, "--output_dir"), "a.json"), []byte(`{"segments":[{"text":"oi"}]}`), 0o644)
	})
	if _, err := svc.Transcribe(context.Background(), audio, "en"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if argValue(gotArgs, "--index-url") != whisperx.CUDAIndexURL {
		t.Fatalf("expected cuda index url, got %v", gotArgs)
	}
	if argValue(gotArgs, "--hf_token") != "hf_123" {
		t.Fatalf("expected hf token, got %v", gotArgs)
	}
	if argValue(gotArgs, "--device") != whisperx.CUDADevice {
		t.Fatalf("expected cuda device, got %v", gotArgs)
	}
}

func TestTranscribeFailures(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "a.mp3")

	failing := whisperx.NewService(whisperx.Config{}).WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})
	_, err := failing.Transcribe(context.Background(), audio, "en")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	silent := whisperx.NewService(whisperx.Config{}).WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		return os.WriteFile(filepath.Join(argValue(args, "--output_dir"), "a.json"), []byte(`{"segments":[]}`), 0o644)
	})
	if _, err := silent.Transcribe(context.Background(), audio, "en"); err == nil {
		t.Fatal("expected error for empty transcript")
	}

	if _, err := silent.Transcribe(context.Background(), "", "en"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
