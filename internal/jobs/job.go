package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Recovery messages recorded when the daemon cannot finish a job itself.
const (
	InterruptedMessage = "interrupted by daemon restart"
	StoppedMessage     = "daemon stopped"
)

var (
	// ErrInvalidTransition reports a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidJob reports a record whose fields contradict its status.
	ErrInvalidJob = errors.New("invalid job record")
	// ErrTerminal reports an attempt to move a finished job to another status.
	ErrTerminal = errors.New("job already terminal")
)

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusDone, StatusError}
}

// ParseStatus converts a user supplied string into a Status.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusError:
		return s, true
	}
	return "", false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// Result holds the public references produced by a successful job.
type Result struct {
	AudioURL string `json:"audioUrl"`
	VideoURL string `json:"videoUrl,omitempty"`
}

// Job is one request to re-voice a source video into a target language.
type Job struct {
	ID             string
	SourceID       string
	SourceURL      string
	TargetLanguage string
	Status         Status
	// Stage names the running stage, or the failed one once Status is error.
	Stage     string
	Result    *Result
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var now = func() time.Time { return time.Now().UTC() }

// New returns a pending job for the given source and target language.
func New(sourceID, sourceURL, targetLanguage string) *Job {
	ts := now()
	return &Job{
		SourceID:       sourceID,
		SourceURL:      sourceURL,
		TargetLanguage: targetLanguage,
		Status:         StatusPending,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

// Clone returns a deep copy.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	return &c
}

// MarkProcessing moves a pending job to processing.
func (j *Job) MarkProcessing() error {
	if j.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusProcessing)
	}
	j.Status = StatusProcessing
	j.UpdatedAt = now()
	return nil
}

// EnterStage records the stage now running.
func (j *Job) EnterStage(name string) error {
	if j.Status != StatusProcessing {
		return fmt.Errorf("%w: stage %q while %s", ErrInvalidTransition, name, j.Status)
	}
	j.Stage = name
	j.UpdatedAt = now()
	return nil
}

// MarkDone completes a processing job with its result.
func (j *Job) MarkDone(result Result) error {
	if j.Status != StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusDone)
	}
	if strings.TrimSpace(result.AudioURL) == "" {
		return fmt.Errorf("%w: done without audio reference", ErrInvalidJob)
	}
	j.Status = StatusDone
	j.Result = &result
	j.Error = ""
	j.UpdatedAt = now()
	return nil
}

// MarkFailed terminates a processing job with message.
func (j *Job) MarkFailed(message string) error {
	if j.Status != StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusError)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	j.Status = StatusError
	j.Error = message
	j.Result = nil
	j.UpdatedAt = now()
	return nil
}

// Validate checks the result/error invariant for the job's status.
func (j *Job) Validate() error {
	if j == nil {
		return fmt.Errorf("%w: nil job", ErrInvalidJob)
	}
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidJob)
	}
	if _, ok := ParseStatus(string(j.Status)); !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, j.Status)
	}
	switch j.Status {
	case StatusDone:
		if j.Result == nil || j.Error != "" {
			return fmt.Errorf("%w: done requires result and no error", ErrInvalidJob)
		}
	case StatusError:
		if j.Error == "" || j.Result != nil {
			return fmt.Errorf("%w: error requires message and no result", ErrInvalidJob)
		}
	default:
		if j.Result != nil || j.Error != "" {
			return fmt.Errorf("%w: %s job carries a result or error", ErrInvalidJob, j.Status)
		}
	}
	return nil
}
