package testsupport

import (
	"context"
	"testing"

	"revoice/internal/config"
	"revoice/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustGetJob fetches a job and fails the test when it is missing.
func MustGetJob(t testing.TB, store *jobs.Store, id string) *jobs.Job {
	t.Helper()

	job, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s not found", id)
	}
	return job
}
