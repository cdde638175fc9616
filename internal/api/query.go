package api

import (
	"context"
	"strings"

	"revoice/internal/jobs"
	"revoice/internal/language"
	"revoice/internal/services"
	"revoice/internal/services/youtube"
)

// JobReader abstracts job persistence interactions needed for API queries.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*jobs.Job, error)
	FindLatestCompleted(ctx context.Context, sourceID, language string) (*jobs.Job, error)
	List(ctx context.Context, filter jobs.ListFilter) ([]*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
}

// QueryService exposes read-only job operations returning API DTOs.
type QueryService struct {
	store JobReader
}

// NewQueryService constructs a QueryService around the provided reader.
func NewQueryService(store JobReader) *QueryService {
	if store == nil {
		return nil
	}
	return &QueryService{store: store}
}

// Describe fetches a single job.
func (s *QueryService) Describe(ctx context.Context, id string) (*JobRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "", "describe", "job id is required", nil)
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "describe", "load job", err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "describe", "job "+id+" not found", nil)
	}
	dto := FromJob(job)
	return &dto, nil
}

// LatestCompleted returns the newest done job for source and language.
// Pending, processing and failed jobs are never returned.
func (s *QueryService) LatestCompleted(ctx context.Context, source, lang string) (*JobRecord, error) {
	source = strings.TrimSpace(source)
	lang = strings.TrimSpace(lang)
	if source == "" || lang == "" {
		return nil, services.Wrap(services.ErrValidation, "", "lookup", "source and language are required", nil)
	}
	canonical, err := language.Normalize(lang)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "lookup", "invalid language "+lang, err)
	}
	videoID := youtube.ExtractVideoID(source)
	if videoID == "" {
		return nil, services.Wrap(services.ErrValidation, "", "lookup", "could not extract a video id from "+source, nil)
	}
	job, err := s.store.FindLatestCompleted(ctx, videoID, canonical)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "lookup", "query jobs", err)
	}
	if job == nil || job.Status != jobs.StatusDone {
		return nil, services.Wrap(services.ErrNotFound, "", "lookup", "no completed job for "+videoID+" in "+canonical, nil)
	}
	dto := FromJob(job)
	return &dto, nil
}

// List returns jobs filtered by status names, newest first.
func (s *QueryService) List(ctx context.Context, statuses []string, limit int) ([]JobRecord, error) {
	filter := jobs.ListFilter{Limit: limit}
	for _, raw := range statuses {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := jobs.ParseStatus(part)
			if !ok {
				return nil, services.Wrap(services.ErrValidation, "", "list", "unknown status "+strings.TrimSpace(part), nil)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "list", "query jobs", err)
	}
	return FromJobs(list), nil
}

// Stats returns job counts keyed by status string.
func (s *QueryService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "stats", "query jobs", err)
	}
	return MergeStats(stats), nil
}
