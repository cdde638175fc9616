package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"revoice/internal/api"
	"revoice/internal/dedupe"
	"revoice/internal/jobs"
	"revoice/internal/services"
	"revoice/internal/testsupport"
	"revoice/internal/workflow"
)

type recordingLauncher struct {
	mu       sync.Mutex
	launched []*jobs.Job
}

func (r *recordingLauncher) Launch(job *jobs.Job) *workflow.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launched = append(r.launched, job.Clone())
	return nil
}

func (r *recordingLauncher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.launched)
}

func newServices(t *testing.T, opts ...api.GatewayOption) (*jobs.Store, *recordingLauncher, *api.Gateway, *api.QueryService) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	launcher := &recordingLauncher{}
	return store, launcher, api.NewGateway(store, launcher, opts...), api.NewQueryService(store)
}

func TestSubmitCreatesPendingJobAndLaunches(t *testing.T) {
	store, launcher, gateway, _ := newServices(t)
	ctx := context.Background()

	resp, err := gateway.Submit(ctx, api.SubmitRequest{Source: "https://youtu.be/abc123", Language: "es"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.JobID == "" || resp.Existing {
		t.Fatalf("unexpected response %+v", resp)
	}
	job := testsupport.MustGetJob(t, store, resp.JobID)
	if job.Status != jobs.StatusPending || job.SourceID != "abc123" || job.TargetLanguage != "es" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.Result != nil || job.Error != "" {
		t.Fatalf("pending job must carry neither result nor error")
	}
	if launcher.count() != 1 || launcher.launched[0].ID != resp.JobID {
		t.Fatalf("expected the job to be launched once, got %d", launcher.count())
	}
}

func TestSubmitAcceptsYoutubeURLAliasAndCanonicalizesLanguage(t *testing.T) {
	store, _, gateway, _ := newServices(t)

	resp, err := gateway.Submit(context.Background(), api.SubmitRequest{
		YoutubeURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Language:   "pt-br",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job := testsupport.MustGetJob(t, store, resp.JobID)
	if job.SourceID != "dQw4w9WgXcQ" || job.TargetLanguage != "pt-BR" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestSubmitValidation(t *testing.T) {
	store, launcher, gateway, _ := newServices(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  api.SubmitRequest
		want string
	}{
		{"missing source", api.SubmitRequest{Language: "es"}, "source is required"},
		{"missing language", api.SubmitRequest{Source: "https://youtu.be/abc123"}, "language is required"},
		{"bad language", api.SubmitRequest{Source: "https://youtu.be/abc123", Language: "not a tag!"}, "invalid language"},
		{"not youtube", api.SubmitRequest{Source: "https://example.com/video", Language: "es"}, "video id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gateway.Submit(ctx, tc.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}

	list, err := store.List(ctx, jobs.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 || launcher.count() != 0 {
		t.Fatalf("rejected submissions must not create or launch jobs: %d/%d", len(list), launcher.count())
	}
}

func TestSubmitDeduplicatesInFlightJobs(t *testing.T) {
	store, launcher, gateway, _ := newServices(t, api.WithGuard(dedupe.NewMemory(0)))
	ctx := context.Background()
	req := api.SubmitRequest{Source: "https://youtu.be/abc123", Language: "es"}

	first, err := gateway.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := gateway.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if second.JobID != first.JobID || !second.Existing {
		t.Fatalf("expected duplicate to join %s, got %+v", first.JobID, second)
	}
	if launcher.count() != 1 {
		t.Fatalf("duplicate must not launch, got %d launches", launcher.count())
	}

	// Once the holder is terminal the reservation is stale.
	job := testsupport.MustGetJob(t, store, first.JobID)
	if err := job.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := job.MarkFailed("boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save: %v", err)
	}
	third, err := gateway.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if third.JobID == first.JobID || third.Existing {
		t.Fatalf("expected a fresh job, got %+v", third)
	}
}

// gatedStore holds the first Create until release is closed.
type gatedStore struct {
	*jobs.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Create(ctx context.Context, job *jobs.Job) (string, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.Create(ctx, job)
}

func TestSubmitDeduplicatesConcurrentSubmissions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &gatedStore{
		Store:   testsupport.MustOpenStore(t, cfg),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	launcher := &recordingLauncher{}
	gateway := api.NewGateway(store, launcher, api.WithGuard(dedupe.NewMemory(0)))
	ctx := context.Background()
	req := api.SubmitRequest{Source: "https://youtu.be/abc123", Language: "es"}

	type outcome struct {
		resp api.SubmitResponse
		err  error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		resp, err := gateway.Submit(ctx, req)
		firstDone <- outcome{resp, err}
	}()
	<-store.entered

	second, err := gateway.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	close(store.release)
	first := <-firstDone
	if first.err != nil {
		t.Fatalf("Submit: %v", first.err)
	}

	if !second.Existing || second.JobID != first.resp.JobID {
		t.Fatalf("expected second submission to join %s, got %+v", first.resp.JobID, second)
	}
	if launcher.count() != 1 {
		t.Fatalf("expected one launch, got %d", launcher.count())
	}
	list, err := store.List(ctx, jobs.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one stored job, got %d", len(list))
	}
}

func TestDescribe(t *testing.T) {
	_, _, gateway, query := newServices(t)
	ctx := context.Background()

	if _, err := query.Describe(ctx, "does-not-exist"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	resp, err := gateway.Submit(ctx, api.SubmitRequest{Source: "https://youtu.be/abc123", Language: "es"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	record, err := query.Describe(ctx, resp.JobID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if record.Status != "pending" || record.CreatedAt == "" || record.Terminal() {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestLatestCompletedReturnsOnlyDoneJobs(t *testing.T) {
	store, _, _, query := newServices(t)
	ctx := context.Background()
	source := "https://youtu.be/abc123"

	if _, err := query.LatestCompleted(ctx, source, "es"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found before any job, got %v", err)
	}

	done := jobs.New("abc123", source, "es")
	if _, err := store.Create(ctx, done); err != nil {
		t.Fatalf("Create: %v", err)
	}
	mustFinish(t, store, done, "")

	failed := jobs.New("abc123", source, "es")
	if _, err := store.Create(ctx, failed); err != nil {
		t.Fatalf("Create: %v", err)
	}
	mustFinish(t, store, failed, "later failure")

	pending := jobs.New("abc123", source, "es")
	if _, err := store.Create(ctx, pending); err != nil {
		t.Fatalf("Create: %v", err)
	}

	record, err := query.LatestCompleted(ctx, "youtu.be/abc123", "ES")
	if err != nil {
		t.Fatalf("LatestCompleted: %v", err)
	}
	if record.ID != done.ID || record.Result == nil || record.Error != nil {
		t.Fatalf("unexpected record %+v", record)
	}
	if _, err := query.LatestCompleted(ctx, source, "fr"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for other language, got %v", err)
	}
	if _, err := query.LatestCompleted(ctx, "", "es"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListAndStats(t *testing.T) {
	_, _, gateway, query := newServices(t)
	ctx := context.Background()
	for _, id := range []string{"aaa111", "bbb222"} {
		if _, err := gateway.Submit(ctx, api.SubmitRequest{Source: "https://youtu.be/" + id, Language: "es"}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	list, err := query.List(ctx, []string{"pending,processing"}, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(list))
	}
	if _, err := query.List(ctx, []string{"bogus"}, 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stats, err := query.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["pending"] != 2 || stats["done"] != 0 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestJobRecordSerializesNullResultAndError(t *testing.T) {
	job := jobs.New("abc123", "https://youtu.be/abc123", "es")
	job.ID = "J1"
	data, err := json.Marshal(api.FromJob(job))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	for _, want := range []string{`"result":null`, `"error":null`, `"id":"J1"`, `"sourceId":"abc123"`, `"language":"es"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}

func mustFinish(t *testing.T, store *jobs.Store, job *jobs.Job, failure string) {
	t.Helper()
	if err := job.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if failure != "" {
		if err := job.MarkFailed(failure); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
	} else if err := job.MarkDone(jobs.Result{AudioURL: "https://cdn.test/a.mp3"}); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := store.Save(context.Background(), job); err != nil {
		t.Fatalf("Save: %v", err)
	}
}
