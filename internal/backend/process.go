package backend

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/seantiz/texwrap/internal/model"
)

// ProcessBackendName is the registry name of the subprocess backend.
const ProcessBackendName = "process"

// ProcessBackend spawns the engine as a local subprocess.
type ProcessBackend struct {
	logger   *slog.Logger
	lookPath func(string) (string, error)
}

// Compile-time interface satisfaction check.
var _ Backend = (*ProcessBackend)(nil)

// NewProcessBackend creates a backend that runs engines found on PATH.
func NewProcessBackend(logger *slog.Logger) *ProcessBackend {
	return &ProcessBackend{
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

// Run starts the engine in inv.Dir with the inherited environment and no
// stdin, streams its output lines to inv.LogWriter, and waits for it to
// exit. The engine is never killed; it runs to completion.
func (b *ProcessBackend) Run(inv Invocation) (Outcome, error) {
	start := time.Now()

	cmd := exec.Command(inv.Command, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = os.Environ()

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if isNotFound(err) {
			return Outcome{}, fmt.Errorf("%w: %s: %w", ErrEngineNotFound, inv.Command, err)
		}
		return Outcome{}, fmt.Errorf("start %s: %w", inv.Command, err)
	}
	b.logger.Debug("engine started", "job_id", inv.JobID, "command", inv.Command, "pid", cmd.Process.Pid)

	// Mutex serializes LogWriter calls from the stdout and stderr readers.
	var writeMu sync.Mutex
	var wg sync.WaitGroup
	wg.Go(func() { streamLines(stdoutPipe, &writeMu, inv.LogWriter) })
	wg.Go(func() { streamLines(stderrPipe, &writeMu, inv.LogWriter) })
	wg.Wait()

	waitErr := cmd.Wait()
	out := Outcome{DurationMS: int(time.Since(start).Milliseconds())}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return out, fmt.Errorf("wait %s: %w", inv.Command, waitErr)
		}
		out.ExitCode = exitErr.ExitCode()
	}

	b.logger.Debug("engine exited", "job_id", inv.JobID, "command", inv.Command,
		"exit_code", out.ExitCode, "duration_ms", out.DurationMS)
	return out, nil
}

// Capabilities reports which known engines are installed.
func (b *ProcessBackend) Capabilities() Capabilities {
	var found []string
	for _, c := range KnownCommands {
		if _, err := b.lookPath(c); err == nil {
			found = append(found, c)
		}
	}
	if found == nil {
		found = []string{}
	}
	return Capabilities{
		Name:     ProcessBackendName,
		Commands: found,
		Formats:  []string{model.FormatPDF, model.FormatDVI},
	}
}

// streamLines reads r line by line and passes each line to fn under mu.
// The reader is always drained so the engine never blocks on a full pipe.
func streamLines(r io.Reader, mu *sync.Mutex, fn func(string)) {
	if fn == nil {
		_, _ = io.Copy(io.Discard, r)
		return
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		mu.Lock()
		fn(scanner.Text())
		mu.Unlock()
	}
	_, _ = io.Copy(io.Discard, r)
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
