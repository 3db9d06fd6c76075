package backend

import "errors"

// ErrEngineNotFound is returned when the engine executable cannot be found.
// There is no log to parse in that case.
var ErrEngineNotFound = errors.New("engine not found")

// Backend is the interface that all engine backends must implement.
type Backend interface {
	// Run executes the engine described by inv and blocks until it exits.
	// A non-zero exit status is reported in Outcome, not as an error: the
	// engine may exit non-zero and still produce a usable artifact.
	Run(inv Invocation) (Outcome, error)

	// Capabilities reports what this backend can run.
	Capabilities() Capabilities
}

// Invocation describes one engine run.
type Invocation struct {
	JobID   string   `json:"job_id"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
	// Dir is the workspace the engine runs in.
	Dir string `json:"dir"`
	// Artifact is the file name the engine is expected to leave in Dir.
	Artifact string `json:"artifact"`

	// LogWriter is an optional callback that receives each line the engine
	// prints while it runs.
	LogWriter func(line string) `json:"-"`
}

// Outcome holds what is known about a finished engine run.
type Outcome struct {
	ExitCode   int `json:"exit_code"`
	DurationMS int `json:"duration_ms"`
}

// Capabilities describes a backend.
type Capabilities struct {
	Name     string   `json:"name"`
	Commands []string `json:"commands"`
	Formats  []string `json:"formats"`
}
