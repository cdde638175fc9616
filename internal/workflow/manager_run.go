package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"revoice/internal/dedupe"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
)

var errNoResult = errors.New("upload produced no audio reference")

// stageError ties a failure to the stage that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func (m *Manager) run(job *jobs.Job, task *Task) {
	var runErr error
	// Deferred calls run in reverse: the task resolves only after the spans,
	// gauges and bookkeeping are settled.
	defer func() { task.finish(job, runErr) }()
	defer m.wg.Done()
	defer m.forget(job.ID)

	ctx := m.baseCtx
	if timeout := m.cfg.JobTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, m.logger).With(
		logging.String("source_id", job.SourceID),
		logging.String("language", job.TargetLanguage),
	)
	ctx, span := m.tracer.Start(ctx, "job", trace.WithAttributes(
		attribute.String("revoice.job_id", job.ID),
		attribute.String("revoice.source_id", job.SourceID),
		attribute.String("revoice.language", job.TargetLanguage),
	))
	defer span.End()

	m.metrics.track(ctx, 1)
	defer m.metrics.track(context.WithoutCancel(ctx), -1)

	if err := job.MarkProcessing(); err != nil {
		// Not pending anymore, e.g. a duplicate relaunch. Leave the record alone.
		logger.Warn("job not launched", logging.Error(err),
			logging.String(logging.FieldEventType, "launch_rejected"))
		runErr = err
		return
	}

	workDir := filepath.Join(m.cfg.Paths.WorkDir, job.ID)
	var result jobs.Result
	runErr = m.persist(ctx, job)
	if runErr == nil {
		logger.Info("job started",
			logging.String(logging.FieldEventType, "job_start"),
			logging.String("work_dir", workDir))
		result, runErr = m.execute(ctx, job, workDir, logger)
	}
	runErr = m.finish(ctx, job, result, runErr, logger)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, job.Error)
	}
	if !m.cfg.Workflow.KeepWorkDir {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to remove work directory", logging.Error(err),
				logging.String(logging.FieldEventType, "workdir_cleanup"),
				logging.String(logging.FieldErrorHint, "remove "+workDir+" manually"))
		}
	}
}

// execute runs the stages in order and leaves job processing. Any error is
// returned as a *stageError.
func (m *Manager) execute(ctx context.Context, job *jobs.Job, workDir string, logger *slog.Logger) (jobs.Result, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return jobs.Result{}, &stageError{err: services.Wrap(services.ErrConfiguration, "", "workdir", "create "+workDir, err)}
	}
	state := &stage.State{SourceURL: job.SourceURL, WorkDir: workDir}

	for _, handler := range m.stages {
		name := handler.Name()
		if err := ctx.Err(); err != nil {
			return jobs.Result{}, &stageError{stage: name, err: err}
		}
		if err := job.EnterStage(name); err != nil {
			return jobs.Result{}, &stageError{stage: name, err: err}
		}
		if err := m.persist(ctx, job); err != nil {
			return jobs.Result{}, &stageError{stage: name, err: err}
		}

		stageLogger := logger.With(logging.String(logging.FieldStage, name))
		stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
		started := time.Now()
		if err := m.runStage(services.WithStage(ctx, name), handler, job, state, stageLogger); err != nil {
			return jobs.Result{}, &stageError{stage: name, err: err}
		}
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", time.Since(started)))
	}

	result := jobs.Result{AudioURL: state.AudioURL, VideoURL: state.VideoURL}
	if strings.TrimSpace(result.AudioURL) == "" {
		return jobs.Result{}, &stageError{stage: stage.Upload, err: errNoResult}
	}
	return result, nil
}

func (m *Manager) runStage(ctx context.Context, handler stage.Handler, job *jobs.Job, state *stage.State, logger *slog.Logger) (err error) {
	name := handler.Name()
	ctx, span := m.tracer.Start(ctx, "stage."+name, trace.WithAttributes(
		attribute.String("revoice.stage", name),
	))
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s stage panicked: %v", name, r)
			logger.Error("stage panicked",
				logging.String(logging.FieldEventType, "stage_panic"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
		}
		m.metrics.recordStage(ctx, name, time.Since(started), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	return handler.Execute(ctx, job, state)
}

// finish moves job to its terminal state, persists it and runs the
// notification and reservation hooks.
func (m *Manager) finish(ctx context.Context, job *jobs.Job, result jobs.Result, runErr error, logger *slog.Logger) error {
	hookCtx := context.WithoutCancel(ctx)

	if runErr == nil {
		if err := job.MarkDone(result); err != nil {
			runErr = &stageError{stage: stage.Upload, err: err}
		}
	}
	if runErr != nil {
		if err := job.MarkFailed(m.failureMessage(ctx, runErr)); err != nil {
			logging.ErrorWithContext(logger, "job left in unexpected state", "job_failure", err,
				logging.String("status", string(job.Status)))
		}
	}
	if err := m.persist(hookCtx, job); err != nil {
		logging.ErrorWithContext(logger, "failed to persist job outcome", "persist_failure", err,
			logging.String("status", string(job.Status)))
		m.setLastError(err)
	}
	m.setLastJob(job)
	m.metrics.recordOutcome(hookCtx, string(job.Status))

	if runErr != nil {
		m.handleFailure(hookCtx, job, runErr, logger)
	} else {
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String("audio_url", job.Result.AudioURL),
			logging.String("video_url", job.Result.VideoURL),
			logging.Duration("job_duration", job.UpdatedAt.Sub(job.CreatedAt)))
		m.notifyCompleted(hookCtx, job)
	}
	m.releaseReservation(hookCtx, job, logger)
	return runErr
}

func (m *Manager) handleFailure(ctx context.Context, job *jobs.Job, runErr error, logger *slog.Logger) {
	details := services.Details(runErr)
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", runErr,
		logging.String(logging.FieldStage, job.Stage),
		logging.String("error_message", job.Error),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint))
	m.setLastError(runErr)
	m.notifyFailed(ctx, job)
}

// failureMessage is the text stored on the job. Cancellation by Stop and the
// job deadline get fixed messages; everything else keeps the stage's error,
// even when it lands while the manager is stopping.
func (m *Manager) failureMessage(ctx context.Context, err error) string {
	name := ""
	var se *stageError
	if errors.As(err, &se) {
		name = se.stage
	}
	switch {
	case m.stopping() && errors.Is(err, context.Canceled):
		return jobs.StoppedMessage
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("%s timed out after %s", stageLabel(name), m.cfg.JobTimeout())
	}
	msg := strings.TrimSpace(services.Details(err).Message)
	if msg == "" {
		return stageLabel(name) + " failed"
	}
	if name != "" && !strings.Contains(msg, name) {
		msg = name + ": " + msg
	}
	return msg
}

func stageLabel(name string) string {
	if name == "" {
		return "job"
	}
	return name + " stage"
}

func (m *Manager) persist(ctx context.Context, job *jobs.Job) error {
	if err := m.store.Save(context.WithoutCancel(ctx), job); err != nil {
		return services.Wrap(services.ErrTransient, job.Stage, "persist", "save job", err)
	}
	return nil
}

func (m *Manager) releaseReservation(ctx context.Context, job *jobs.Job, logger *slog.Logger) {
	if err := m.guard.Release(ctx, dedupe.Key(job.SourceID, job.TargetLanguage), job.ID); err != nil {
		logger.Warn("failed to release dedupe reservation", logging.Error(err),
			logging.String(logging.FieldEventType, "dedupe_release"),
			logging.String(logging.FieldErrorHint, "the reservation expires after dedupe.ttl_seconds"))
	}
}
