package jobs_test

import (
	"errors"
	"testing"

	"revoice/internal/jobs"
)

func TestLifecycleHappyPath(t *testing.T) {
	job := jobs.New("abc123", "https://youtu.be/abc123", "es")
	job.ID = "j1"
	if job.Status != jobs.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("pending job should validate: %v", err)
	}
	created := job.UpdatedAt

	if err := job.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := job.EnterStage("metadata"); err != nil {
		t.Fatalf("EnterStage: %v", err)
	}
	if job.UpdatedAt.Before(created) {
		t.Fatal("updatedAt must not move backwards")
	}
	if err := job.MarkDone(jobs.Result{AudioURL: "https://cdn/a.mp3"}); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if job.Result == nil || job.Error != "" {
		t.Fatalf("done job must carry only a result: %+v", job)
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("done job should validate: %v", err)
	}
}

func TestTransitionsAreMonotonic(t *testing.T) {
	job := jobs.New("abc123", "", "es")
	if err := job.MarkDone(jobs.Result{AudioURL: "x"}); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("pending -> done should be rejected, got %v", err)
	}
	if err := job.MarkFailed("boom"); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("pending -> error should be rejected, got %v", err)
	}
	if err := job.EnterStage("extract"); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("stage before processing should be rejected, got %v", err)
	}

	if err := job.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := job.MarkProcessing(); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("processing -> processing should be rejected, got %v", err)
	}
	if err := job.MarkFailed(""); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if job.Error == "" || job.Result != nil {
		t.Fatalf("error job must carry only a message: %+v", job)
	}
	for name, step := range map[string]func() error{
		"processing": job.MarkProcessing,
		"done":       func() error { return job.MarkDone(jobs.Result{AudioURL: "x"}) },
		"error":      func() error { return job.MarkFailed("again") },
	} {
		if err := step(); !errors.Is(err, jobs.ErrInvalidTransition) {
			t.Fatalf("error -> %s should be rejected, got %v", name, err)
		}
	}
}

func TestMarkDoneRequiresAudioReference(t *testing.T) {
	job := jobs.New("abc123", "", "es")
	_ = job.MarkProcessing()
	if err := job.MarkDone(jobs.Result{}); !errors.Is(err, jobs.ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob, got %v", err)
	}
	if job.Status != jobs.StatusProcessing {
		t.Fatalf("failed MarkDone must not change status, got %s", job.Status)
	}
}

func TestValidateRejectsContradictions(t *testing.T) {
	cases := map[string]*jobs.Job{
		"pending with error":  {ID: "a", Status: jobs.StatusPending, Error: "x"},
		"processing w/result": {ID: "b", Status: jobs.StatusProcessing, Result: &jobs.Result{AudioURL: "x"}},
		"done without result": {ID: "c", Status: jobs.StatusDone},
		"error with result":   {ID: "d", Status: jobs.StatusError, Error: "x", Result: &jobs.Result{AudioURL: "x"}},
		"unknown status":      {ID: "e", Status: "paused"},
		"missing id":          {Status: jobs.StatusPending},
	}
	for name, job := range cases {
		if err := job.Validate(); !errors.Is(err, jobs.ErrInvalidJob) {
			t.Fatalf("%s: expected ErrInvalidJob, got %v", name, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if st, ok := jobs.ParseStatus(" DONE "); !ok || st != jobs.StatusDone {
		t.Fatalf("unexpected parse: %v %v", st, ok)
	}
	if _, ok := jobs.ParseStatus("failed"); ok {
		t.Fatal("unknown status should not parse")
	}
	if !jobs.StatusError.IsTerminal() || jobs.StatusProcessing.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}
