package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"revoice/internal/config"
	"revoice/internal/dedupe"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/notifications"
	"revoice/internal/stage"
	"revoice/internal/telemetry"
)

// JobStore is the persistence the manager writes job transitions through.
type JobStore interface {
	Save(ctx context.Context, job *jobs.Job) error
	List(ctx context.Context, filter jobs.ListFilter) ([]*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
	FailInterrupted(ctx context.Context, message string) (int64, error)
}

// Manager launches jobs and drives them through the stage sequence.
type Manager struct {
	cfg      *config.Config
	store    JobStore
	stages   []stage.Handler
	logger   *slog.Logger
	notifier notifications.Service
	guard    dedupe.Guard
	tracer   trace.Tracer
	metrics  *instruments

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
	tasks   map[string]*Task
	lastErr error
	lastJob *jobs.Job
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier sets the service that receives completion and failure events.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithDedupe sets the guard whose reservations are released when a job ends.
func WithDedupe(guard dedupe.Guard) Option {
	return func(m *Manager) {
		if guard != nil {
			m.guard = guard
		}
	}
}

// WithTelemetry records stage spans and metrics through providers.
func WithTelemetry(providers *telemetry.Providers) Option {
	return func(m *Manager) {
		if providers == nil {
			return
		}
		if providers.Tracer != nil {
			m.tracer = providers.Tracer.Tracer(telemetry.InstrumentationName)
		}
		if providers.Meter != nil {
			if inst, err := newInstruments(providers.Meter.Meter(telemetry.InstrumentationName)); err == nil {
				m.metrics = inst
			}
		}
	}
}

// NewManager constructs a manager over the ordered stage handlers.
func NewManager(cfg *config.Config, store JobStore, stages []stage.Handler, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow: config required")
	}
	if store == nil {
		return nil, fmt.Errorf("workflow: job store required")
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("workflow: no stages registered")
	}
	noop := telemetry.Noop()
	metrics, err := newInstruments(noop.Meter.Meter(telemetry.InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("workflow: metrics: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		store:    store,
		stages:   append([]stage.Handler(nil), stages...),
		logger:   logging.NewNop(),
		notifier: notifications.Noop{},
		guard:    dedupe.Off{},
		tracer:   noop.Tracer.Tracer(telemetry.InstrumentationName),
		metrics:  metrics,
		baseCtx:  ctx,
		cancel:   cancel,
		tasks:    make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logging.String(logging.FieldComponent, "workflow-manager"))
	return m, nil
}

// Launch starts job in its own goroutine and returns immediately. The job
// must already be persisted as pending. Launching a job that is still running
// returns the existing task.
func (m *Manager) Launch(job *jobs.Job) *Task {
	if job == nil {
		task := newTask("")
		task.finish(nil, fmt.Errorf("workflow: nil job"))
		return task
	}
	m.mu.Lock()
	if existing, ok := m.tasks[job.ID]; ok {
		m.mu.Unlock()
		return existing
	}
	task := newTask(job.ID)
	if m.stopped {
		m.mu.Unlock()
		m.logger.Warn("job not launched; manager stopped",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldEventType, "launch_rejected"))
		task.finish(job, ErrStopped)
		return task
	}
	m.tasks[job.ID] = task
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(job.Clone(), task)
	return task
}

// Start recovers from an unclean shutdown: jobs left processing are failed and,
// when configured, pending jobs are launched again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	m.preflight(ctx)

	failed, err := m.store.FailInterrupted(ctx, jobs.InterruptedMessage)
	if err != nil {
		m.resetStarted()
		return fmt.Errorf("workflow: recover interrupted jobs: %w", err)
	}
	if failed > 0 {
		logging.WarnWithContext(m.logger, "interrupted jobs marked failed", "recovery",
			logging.Int64("count", failed),
			logging.String(logging.FieldErrorHint, "resubmit the affected sources"))
	}

	if !m.cfg.Workflow.RelaunchPending {
		return nil
	}
	pending, err := m.store.List(ctx, jobs.ListFilter{Statuses: []jobs.Status{jobs.StatusPending}})
	if err != nil {
		m.resetStarted()
		return fmt.Errorf("workflow: list pending jobs: %w", err)
	}
	// List is newest first; relaunch in submission order.
	for i := len(pending) - 1; i >= 0; i-- {
		m.Launch(pending[i])
	}
	if len(pending) > 0 {
		m.logger.Info("pending jobs relaunched",
			logging.Int("count", len(pending)),
			logging.String(logging.FieldEventType, "recovery"))
	}
	return nil
}

// Stop cancels every running job and waits for the tasks to record their
// failure, or for ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("workflow: waiting for running jobs: %w", ctx.Err())
	}
}

func (m *Manager) preflight(ctx context.Context) {
	for _, handler := range m.stages {
		health := handler.HealthCheck(ctx)
		if health.Ready {
			continue
		}
		logging.WarnWithContext(m.logger, "stage not ready", "preflight",
			logging.String(logging.FieldStage, handler.Name()),
			logging.String("detail", health.Detail),
			logging.String(logging.FieldErrorHint, "jobs reaching this stage will fail until it is fixed"))
	}
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.tasks, id)
	m.mu.Unlock()
}

// resetStarted lets a Start that failed during recovery be retried.
func (m *Manager) resetStarted() {
	m.mu.Lock()
	m.started = false
	m.mu.Unlock()
}

func (m *Manager) stopping() bool {
	return m.baseCtx.Err() != nil
}
