package workflow

import (
	"context"

	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/notifications"
)

func (m *Manager) notifyCompleted(ctx context.Context, job *jobs.Job) {
	m.publish(ctx, notifications.EventJobCompleted, job)
}

func (m *Manager) notifyFailed(ctx context.Context, job *jobs.Job) {
	m.publish(ctx, notifications.EventJobFailed, job)
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, job *jobs.Job) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, notifications.JobPayload(job)); err != nil {
		m.logger.Debug("notification failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("event", string(event)),
			logging.Error(err))
	}
}
