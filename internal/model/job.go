package model

import "time"

// Job status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Output format constants. Any other format the engine can emit is accepted;
// these are the ones with a dedicated default command and content type.
const (
	FormatPDF = "pdf"
	FormatDVI = "dvi"
)

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether status is a final job status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// LogLine is a single persisted line of engine output for a job.
type LogLine struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id"`
	Seq       int       `json:"seq"`
	Line      string    `json:"line"`
	CreatedAt time.Time `json:"created_at"`
}

// Job records one compile request and its outcome.
type Job struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Format       string     `json:"format"`
	Command      string     `json:"command"`
	WorkspaceID  *int64     `json:"workspace_id,omitempty"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	Error        string     `json:"error,omitempty"`
	Trace        string     `json:"trace,omitempty"`
	ArtifactSize *int64     `json:"artifact_size,omitempty"`
	DurationMS   *int       `json:"duration_ms,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
