package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestCompleteJSONSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "revoice" {
			t.Errorf("x-title = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "demo" || len(req.Messages) != 2 || req.ResponseFormat["type"] != "json_object" {
			t.Errorf("unexpected request %+v", req)
		}
		chatReply(t, w, `{"ok":true}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: " secret ", BaseURL: server.URL, Model: "demo", Title: "revoice"})
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}
}

func TestCompleteJSONRequiresKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestCompleteJSONRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		chatReply(t, w, `{"ok":true}`)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if len(slept) != 2 || slept[0] != 2*time.Second {
		t.Fatalf("unexpected sleeps %v", slept)
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	_, err := client.CompleteJSON(context.Background(), "s", "u")
	var status *statusError
	if !errors.As(err, &status) || status.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestCompleteJSONGivesUpOnEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		chatReply(t, w, "   ")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithRetryMaxAttempts(2), WithSleeper(func(time.Duration) {}))
	_, err := client.CompleteJSON(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := retryPolicy{base: time.Second, max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("parseRetryAfter(3) = %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative retry-after accepted")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("garbage retry-after accepted")
	}
}

func TestDecodeJSONToleratesFencesAndProse(t *testing.T) {
	inputs := []string{
		`{"translation":"ola"}`,
		"```json\n{\"translation\":\"ola\"}\n```",
		`Sure! Here it is: {"translation":"ola"} Hope that helps.`,
	}
	for _, input := range inputs {
		var out translationResponse
		if err := DecodeJSON(input, &out); err != nil {
			t.Fatalf("DecodeJSON(%q): %v", input, err)
		}
		if out.Translation != "ola" {
			t.Fatalf("DecodeJSON(%q) = %+v", input, out)
		}
	}
	var out translationResponse
	if err := DecodeJSON("no json here", &out); err == nil {
		t.Fatal("expected error for non-json payload")
	}
}
