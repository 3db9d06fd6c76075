package backend

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/seantiz/texwrap/internal/model"
)

// StubBackendName is the registry name of the stub backend.
const StubBackendName = "stub"

// Control sequences the stub reacts to.
const (
	stubFail   = `\fail`
	stubNoLog  = `\nolog`
	stubSilent = `\silent`
)

// StubBackend imitates an engine without a TeX installation. It copies the
// source into the artifact, except when the source contains \fail (a log
// with an error marker and location), \silent (a log without markers), or
// \nolog (no output at all).
type StubBackend struct {
	// Delay is slept before producing output.
	Delay time.Duration
}

// Compile-time interface satisfaction check.
var _ Backend = (*StubBackend)(nil)

// Run reads the source named by the last argument and produces output.
func (b *StubBackend) Run(inv Invocation) (Outcome, error) {
	start := time.Now()
	if len(inv.Args) == 0 {
		return Outcome{}, fmt.Errorf("stub: no source argument")
	}
	src, err := os.ReadFile(filepath.Join(inv.Dir, inv.Args[len(inv.Args)-1]))
	if err != nil {
		return Outcome{}, fmt.Errorf("stub: read source: %w", err)
	}
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}

	emit := func(line string) {
		if inv.LogWriter != nil {
			inv.LogWriter(line)
		}
	}
	emit("This is StubTeX, Version 0 (" + inv.Command + ")")

	logPath := filepath.Join(inv.Dir, "texput.log")
	outcome := func(code int) Outcome {
		return Outcome{ExitCode: code, DurationMS: int(time.Since(start).Milliseconds())}
	}

	switch {
	case bytes.Contains(src, []byte(stubNoLog)):
		return outcome(1), nil
	case bytes.Contains(src, []byte(stubFail)):
		line := lineOf(src, []byte(stubFail))
		log := fmt.Sprintf("This is StubTeX\n! Undefined control sequence.\nl.%d %s\n", line, stubFail)
		emit("! Undefined control sequence.")
		return outcome(1), os.WriteFile(logPath, []byte(log), 0o600)
	case bytes.Contains(src, []byte(stubSilent)):
		return outcome(1), os.WriteFile(logPath, []byte("This is StubTeX\nNo pages of output.\n"), 0o600)
	}

	artifact := inv.Artifact
	if artifact == "" {
		artifact = "texput." + model.FormatPDF
	}
	body := append([]byte("%STUB\n"), src...)
	if err := os.WriteFile(filepath.Join(inv.Dir, artifact), body, 0o600); err != nil {
		return outcome(1), err
	}
	emit("Output written on " + artifact)
	return outcome(0), os.WriteFile(logPath, []byte("This is StubTeX\nOutput written on "+artifact+"\n"), 0o600)
}

// Capabilities reports that the stub accepts any command.
func (b *StubBackend) Capabilities() Capabilities {
	return Capabilities{
		Name:     StubBackendName,
		Commands: append([]string(nil), KnownCommands...),
		Formats:  []string{model.FormatPDF, model.FormatDVI},
	}
}

// lineOf returns the 1-based line of the first occurrence of sub.
func lineOf(src, sub []byte) int {
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), len(src)+1)
	n := 0
	for sc.Scan() {
		n++
		if bytes.Contains(sc.Bytes(), sub) {
			return n
		}
	}
	return n
}
