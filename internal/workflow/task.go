package workflow

import (
	"errors"
	"sync"

	"revoice/internal/jobs"
)

// ErrStopped is returned by tasks launched after the manager stopped. Their
// jobs stay pending for the next start to pick up.
var ErrStopped = errors.New("workflow manager stopped")

// Task is the handle of one launched job.
type Task struct {
	JobID string

	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
	job  *jobs.Job
}

func newTask(jobID string) *Task {
	return &Task{JobID: jobID, done: make(chan struct{})}
}

// Done is closed once the job reached a terminal state or could not run.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finished and returns Err.
func (t *Task) Wait() error {
	<-t.done
	return t.Err()
}

// Err is the failure that ended the job, nil on success or while running.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Job returns the final job snapshot, nil while running.
func (t *Task) Job() *jobs.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job.Clone()
}

func (t *Task) finish(job *jobs.Job, err error) {
	t.once.Do(func() {
		t.mu.Lock()
		t.err = err
		t.job = job.Clone()
		t.mu.Unlock()
		close(t.done)
	})
}
