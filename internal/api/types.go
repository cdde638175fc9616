package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitRequest asks for a source to be re-voiced. YoutubeURL is accepted as
// an alias of Source.
type SubmitRequest struct {
	Source     string `json:"source,omitempty"`
	YoutubeURL string `json:"youtubeUrl,omitempty"`
	Language   string `json:"language"`
}

// SourceRef returns the submitted source, preferring Source.
func (r SubmitRequest) SourceRef() string {
	if r.Source != "" {
		return r.Source
	}
	return r.YoutubeURL
}

// SubmitResponse identifies the job handling a submission.
type SubmitResponse struct {
	JobID string `json:"jobId"`
	// Existing is set when an in-flight job for the same source and language
	// was returned instead of a new one.
	Existing bool `json:"existing,omitempty"`
}

// JobResult lists the public references of a finished job.
type JobResult struct {
	AudioURL string `json:"audioUrl"`
	VideoURL string `json:"videoUrl,omitempty"`
}

// JobRecord describes a job in a transport-friendly format.
type JobRecord struct {
	ID        string     `json:"id"`
	SourceID  string     `json:"sourceId"`
	SourceURL string     `json:"sourceUrl"`
	Language  string     `json:"language"`
	Status    string     `json:"status"`
	Stage     string     `json:"stage,omitempty"`
	Result    *JobResult `json:"result"`
	Error     *string    `json:"error"`
	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
}

// Terminal reports whether the job reached done or error.
func (r JobRecord) Terminal() bool {
	return r.Status == "done" || r.Status == "error"
}

// ErrorMessage returns the failure message or "".
func (r JobRecord) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobRecord `json:"jobs"`
}

// StatsResponse provides job counts keyed by status.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes orchestrator state.
type WorkflowStatus struct {
	Started     bool           `json:"started"`
	Running     int            `json:"running"`
	RunningJobs []string       `json:"runningJobs,omitempty"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *JobRecord     `json:"lastJob,omitempty"`
	JobStats    map[string]int `json:"jobStats"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// HealthResponse is served by the daemon health endpoint.
type HealthResponse struct {
	Status   string         `json:"status"`
	PID      int            `json:"pid"`
	Store    string         `json:"store"`
	StoreErr string         `json:"storeError,omitempty"`
	Workflow WorkflowStatus `json:"workflow"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Hint  string `json:"hint,omitempty"`
}
