package workflow

import (
	"context"
	"sort"

	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Started     bool                    `json:"started"`
	Stopped     bool                    `json:"stopped"`
	Running     int                     `json:"running"`
	RunningJobs []string                `json:"runningJobs,omitempty"`
	LastError   string                  `json:"lastError,omitempty"`
	LastJob     *jobs.Job               `json:"-"`
	JobStats    map[jobs.Status]int     `json:"jobStats,omitempty"`
	StageHealth map[string]stage.Health `json:"stageHealth"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Started: m.started,
		Stopped: m.stopped,
		Running: len(m.tasks),
		LastJob: m.lastJob.Clone(),
	}
	for id := range m.tasks {
		summary.RunningJobs = append(summary.RunningJobs, id)
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()
	sort.Strings(summary.RunningJobs)

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err),
			logging.String(logging.FieldEventType, "status"),
			logging.String(logging.FieldErrorHint, "check the job store connection"))
	}
	summary.JobStats = stats
	summary.StageHealth = m.StageHealth(ctx)
	return summary
}

// StageHealth runs every stage's health check.
func (m *Manager) StageHealth(ctx context.Context) map[string]stage.Health {
	health := make(map[string]stage.Health, len(m.stages))
	for _, handler := range m.stages {
		health[handler.Name()] = handler.HealthCheck(ctx)
	}
	return health
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *jobs.Job) {
	m.mu.Lock()
	m.lastJob = job.Clone()
	m.mu.Unlock()
}
