package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"revoice/internal/api"
	"revoice/internal/config"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/workflow"
)

// Daemon coordinates the API server and the workflow manager and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	workflow *workflow.Manager
	gateway  *api.Gateway
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, wf *workflow.Manager, gateway *api.Gateway, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil || gateway == nil {
		return nil, errors.New("daemon requires config, store, workflow manager and gateway")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		gateway:  gateway,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Handler returns the HTTP API handler without starting a listener.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

// Addr returns the address the API listens on once started.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Start acquires the daemon lock, binds the API address, runs workflow
// recovery and then serves requests. A failed Start leaves the workflow
// manager untouched and may be retried. After Stop the daemon is spent,
// since its manager cannot be restarted.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another revoiced instance is already running")
	}

	if err := d.server.listen(); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	if err := d.workflow.Start(ctx); err != nil {
		d.server.closeListener()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.server.serve()

	d.running.Store(true)
	d.logger.Info("revoice daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.addr()),
		logging.String("store", d.store.Location()))
	return nil
}

// Stop shuts the API down, cancels running jobs and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.server.stop()
	timeout := time.Duration(d.cfg.Workflow.ShutdownSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := d.workflow.Stop(ctx); err != nil {
		logging.WarnWithContext(d.logger, "running jobs did not stop in time", "shutdown",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "jobs left processing are failed on next start"))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("revoice daemon stopped")
}

// Close stops the daemon and closes the job store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Health reports store reachability and workflow state.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	resp := api.HealthResponse{
		Status:   "ok",
		PID:      processID(),
		Store:    d.store.Driver(),
		Workflow: api.FromStatusSummary(d.workflow.Status(ctx)),
	}
	if err := d.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.StoreErr = err.Error()
	}
	return resp
}
