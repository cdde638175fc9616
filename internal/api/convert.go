package api

import (
	"slices"

	"revoice/internal/jobs"
	"revoice/internal/stage"
	"revoice/internal/workflow"
)

// FromJob converts a job to its API representation.
func FromJob(job *jobs.Job) JobRecord {
	if job == nil {
		return JobRecord{}
	}
	dto := JobRecord{
		ID:        job.ID,
		SourceID:  job.SourceID,
		SourceURL: job.SourceURL,
		Language:  job.TargetLanguage,
		Status:    string(job.Status),
		Stage:     job.Stage,
	}
	switch job.Status {
	case jobs.StatusDone:
		if job.Result != nil {
			dto.Result = &JobResult{AudioURL: job.Result.AudioURL, VideoURL: job.Result.VideoURL}
		}
	case jobs.StatusError:
		msg := job.Error
		dto.Error = &msg
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of jobs.
func FromJobs(list []*jobs.Job) []JobRecord {
	out := make([]JobRecord, 0, len(list))
	for _, job := range list {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// MergeStats returns counts for every status, zero-filled.
func MergeStats(stats map[jobs.Status]int) map[string]int {
	out := make(map[string]int, len(jobs.AllStatuses()))
	for _, status := range jobs.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromStatusSummary converts the orchestrator summary.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Started:     summary.Started,
		Running:     summary.Running,
		RunningJobs: summary.RunningJobs,
		LastError:   summary.LastError,
		JobStats:    MergeStats(summary.JobStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastJob != nil {
		record := FromJob(summary.LastJob)
		status.LastJob = &record
	}
	return status
}

// StageHealthSlice orders health records by pipeline position. Unknown names
// sort last, alphabetically.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	order := stage.Order()
	out := make([]StageHealth, 0, len(health))
	for name, h := range health {
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	rank := func(name string) int {
		if i := slices.Index(order, name); i >= 0 {
			return i
		}
		return len(order)
	}
	slices.SortFunc(out, func(a, b StageHealth) int {
		if ra, rb := rank(a.Name), rank(b.Name); ra != rb {
			return ra - rb
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}
