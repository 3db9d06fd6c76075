package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seantiz/texwrap/internal/backend"
	"github.com/seantiz/texwrap/internal/document"
	"github.com/seantiz/texwrap/internal/model"
	"github.com/seantiz/texwrap/internal/store"
	"github.com/seantiz/texwrap/internal/texlog"
	"github.com/seantiz/texwrap/internal/workspace"
)

// Options configures a single compile. The zero value compiles to PDF with
// the default engine for that format.
type Options struct {
	Format  string `json:"format"`
	Command string `json:"command,omitempty"`
}

// Engine orchestrates compile requests.
type Engine struct {
	workspaces  *workspace.Manager
	registry    *backend.Registry
	backendName string
	store       store.Store
	logger      *slog.Logger
	wg          sync.WaitGroup
	broker      *LogBroker
}

// New creates a compile engine that runs every request on the backend
// registered under backendName.
func New(ws *workspace.Manager, reg *backend.Registry, backendName string, s store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		workspaces:  ws,
		registry:    reg,
		backendName: backendName,
		store:       s,
		logger:      logger,
		broker:      NewLogBroker(),
	}
}

// Broker returns the engine's log broker for live engine output.
func (e *Engine) Broker() *LogBroker {
	return e.broker
}

// BackendName returns the name of the backend compiles run on.
func (e *Engine) BackendName() string {
	return e.backendName
}

// WorkspaceRoot returns the root workspace directory. It reports false
// while no compile has triggered its creation yet.
func (e *Engine) WorkspaceRoot() (string, bool) {
	if !e.workspaces.Started() {
		return "", false
	}
	root, err := e.workspaces.Root()
	if err != nil {
		return "", true
	}
	return root, true
}

// Submit validates doc, records a pending job and starts the compile in a
// goroutine. The returned Result is the only channel for the outcome. An
// unsupported document or output format is rejected synchronously with an
// ErrInput error and nothing is allocated or spawned.
func (e *Engine) Submit(doc any, opts Options) (*Result, error) {
	d, err := document.From(doc)
	if err != nil {
		return nil, &Error{Kind: KindInput, Message: MsgInvalidDocument, Cause: err}
	}

	format := opts.Format
	if format == "" {
		format = model.FormatPDF
	}
	if !document.ValidFormat(format) {
		return nil, &Error{
			Kind:    KindInput,
			Message: MsgInvalidFormat,
			Cause:   fmt.Errorf("%w: %q", document.ErrInvalidFormat, format),
		}
	}

	job := model.Job{
		ID:        model.NewID(),
		Status:    model.StatusPending,
		Format:    format,
		Command:   backend.ResolveCommand(format, opts.Command),
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.CreateJob(context.Background(), &job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	res := newResult(job.ID)
	e.wg.Go(func() {
		e.execute(job, d, res)
	})

	return res, nil
}

// Wait blocks until all in-flight compiles have delivered their outcome and
// released their workspace. A successful compile is only finished once its
// Result has been drained or closed.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Shutdown waits for in-flight compiles and removes the workspace root.
func (e *Engine) Shutdown() {
	e.wg.Wait()
	e.workspaces.Shutdown()
}

// execute runs one compile: allocate, write, run, then deliver either the
// artifact or a diagnosed failure. The workspace is released after delivery.
func (e *Engine) execute(job model.Job, doc document.Document, res *Result) {
	defer e.broker.Close(job.ID)

	compilesInFlight.Inc()
	defer compilesInFlight.Dec()

	start := time.Now()
	if err := e.store.UpdateJobStatus(context.Background(), job.ID, model.StatusRunning); err != nil {
		e.logger.Error("failed to transition to running", "job_id", job.ID, "error", err)
	}
	job.Status = model.StatusRunning

	ws, err := e.workspaces.Allocate()
	if err != nil {
		e.finishFailed(&job, start, res, workspaceError(err))
		return
	}
	workspacesAllocated.Inc()
	defer e.workspaces.Teardown(ws)
	job.WorkspaceID = &ws.ID

	source, err := document.Write(ws.Path, doc)
	if err != nil {
		e.finishFailed(&job, start, res, workspaceError(err))
		return
	}

	b, err := e.registry.Resolve(e.backendName)
	if err != nil {
		e.finishFailed(&job, start, res, engineNotFoundError(job.Command, err))
		return
	}

	// Engine output is persisted for history and published for live
	// subscribers.
	var seq atomic.Int32
	out, runErr := b.Run(backend.Invocation{
		JobID:    job.ID,
		Command:  job.Command,
		Args:     backend.EngineArgs(filepath.Base(source)),
		Dir:      ws.Path,
		Artifact: document.ArtifactName(job.Format),
		LogWriter: func(line string) {
			n := int(seq.Add(1) - 1)
			if err := e.store.InsertLogLine(context.Background(), job.ID, n, line); err != nil {
				e.logger.Error("failed to persist log line", "job_id", job.ID, "seq", n, "error", err)
			}
			e.broker.Publish(job.ID, line)
		},
	})

	switch {
	case errors.Is(runErr, backend.ErrEngineNotFound):
		e.logger.Error(fmt.Sprintf("There was an error spawning %s. Please make sure your LaTeX distribution is properly installed.", job.Command),
			"job_id", job.ID, "error", runErr)
		e.finishFailed(&job, start, res, engineNotFoundError(job.Command, runErr))
		return
	case runErr != nil:
		e.logger.Warn("engine run failed", "job_id", job.ID, "command", job.Command, "error", runErr)
	default:
		e.logger.Debug("engine finished", "job_id", job.ID, "exit_code", out.ExitCode, "duration_ms", out.DurationMS)
	}

	// The artifact alone decides success, whatever the run reported.
	artifact := ws.File(document.ArtifactName(job.Format))
	if _, err := os.Stat(artifact); err == nil {
		e.streamArtifact(&job, start, artifact, res)
		return
	}
	e.finishFailed(&job, start, res, e.diagnose(ws))
}

// streamArtifact copies the artifact into res. It returns once the consumer
// has read every byte or closed the result.
func (e *Engine) streamArtifact(job *model.Job, start time.Time, path string, res *Result) {
	f, err := os.Open(path)
	if err != nil {
		e.finishFailed(job, start, res, workspaceError(fmt.Errorf("open artifact: %w", err)))
		return
	}
	defer f.Close()

	n, err := res.stream(f)
	switch {
	case errors.Is(err, io.ErrClosedPipe):
		e.logger.Debug("result closed before artifact was fully read", "job_id", job.ID, "bytes", n)
	case err != nil:
		// The consumer already received the read error.
		e.finishFailed(job, start, res, workspaceError(fmt.Errorf("read artifact: %w", err)))
		return
	}
	e.finishCompleted(job, start, n)
}

// diagnose turns the engine log left in ws into the failure to deliver.
func (e *Engine) diagnose(ws *workspace.Workspace) *Error {
	lines, err := texlog.ReadFile(ws.File(document.LogName))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("failed to read engine log", "workspace_id", ws.ID, "error", err)
		}
		return &Error{Kind: KindNoLog, Message: MsgNoLog, Cause: err}
	}

	report := texlog.Scan(lines)
	if report.Empty() {
		return &Error{Kind: KindNoMarker, Message: MsgNoMarker}
	}
	return syntaxError(lines, report)
}

// finishCompleted records a successful compile.
func (e *Engine) finishCompleted(job *model.Job, start time.Time, size int64) {
	elapsed := time.Since(start)
	compilesTotal.WithLabelValues(formatLabel(job.Format), outcomeSuccess).Inc()
	compileDuration.WithLabelValues(formatLabel(job.Format)).Observe(elapsed.Seconds())

	durationMS := int(elapsed.Milliseconds())
	now := time.Now().UTC()
	job.Status = model.StatusCompleted
	job.ArtifactSize = &size
	job.DurationMS = &durationMS
	job.FinishedAt = &now

	if err := e.store.UpdateJob(context.Background(), job); err != nil {
		e.logger.Error("failed to update completed job", "job_id", job.ID, "error", err)
	}
	e.logger.Info("compile succeeded", "job_id", job.ID, "format", job.Format, "bytes", size, "duration_ms", durationMS)
}

// finishFailed delivers cause on res and records the failed job.
func (e *Engine) finishFailed(job *model.Job, start time.Time, res *Result, cause *Error) {
	res.fail(cause)

	elapsed := time.Since(start)
	compilesTotal.WithLabelValues(formatLabel(job.Format), string(cause.Kind)).Inc()
	compileDuration.WithLabelValues(formatLabel(job.Format)).Observe(elapsed.Seconds())

	durationMS := int(elapsed.Milliseconds())
	now := time.Now().UTC()
	job.Status = model.StatusFailed
	job.ErrorKind = string(cause.Kind)
	job.Error = cause.Error()
	job.Trace = cause.Trace
	job.DurationMS = &durationMS
	job.FinishedAt = &now

	if err := e.store.UpdateJob(context.Background(), job); err != nil {
		e.logger.Error("failed to update failed job", "job_id", job.ID, "error", err)
	}
	e.logger.Info("compile failed", "job_id", job.ID, "kind", cause.Kind, "error", cause.Error())
}
