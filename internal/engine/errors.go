package engine

import (
	"fmt"

	"github.com/seantiz/texwrap/internal/texlog"
)

// Kind classifies why a compile failed.
type Kind string

// Failure kinds.
const (
	// KindWorkspace: the scratch directory or the source file could not be
	// created.
	KindWorkspace Kind = "workspace"
	// KindInput: the document value has an unsupported form.
	KindInput Kind = "input"
	// KindEngineNotFound: the engine executable could not be spawned.
	KindEngineNotFound Kind = "engine_not_found"
	// KindNoLog: no artifact and no log file.
	KindNoLog Kind = "no_log"
	// KindNoMarker: a log exists but contains no error marker.
	KindNoMarker Kind = "no_marker"
	// KindSyntax: the log contains at least one error marker.
	KindSyntax Kind = "syntax"
)

// Fixed failure messages.
const (
	MsgInvalidDocument = "Invalid document"
	MsgInvalidFormat   = "Invalid format"
	MsgNoLog           = "Error running LaTeX"
	MsgNoMarker        = "Unspecified LaTeX Error"
	MsgSyntax          = "LaTeX Syntax Error"
)

// Error is the single failure delivered on a Result. RawLog, Trace and
// Entries are only set for KindSyntax.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	RawLog  []string
	Trace   string
	Entries []texlog.Entry
}

// Sentinels for kind matching with errors.Is.
var (
	ErrWorkspace      = &Error{Kind: KindWorkspace}
	ErrInput          = &Error{Kind: KindInput, Message: MsgInvalidDocument}
	ErrEngineNotFound = &Error{Kind: KindEngineNotFound}
	ErrNoLog          = &Error{Kind: KindNoLog, Message: MsgNoLog}
	ErrNoMarker       = &Error{Kind: KindNoMarker, Message: MsgNoMarker}
	ErrSyntax         = &Error{Kind: KindSyntax, Message: MsgSyntax}
)

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func workspaceError(err error) *Error {
	return &Error{Kind: KindWorkspace, Message: err.Error(), Cause: err}
}

func engineNotFoundError(command string, err error) *Error {
	return &Error{
		Kind:    KindEngineNotFound,
		Message: fmt.Sprintf("%s: engine not found", command),
		Cause:   err,
	}
}

func syntaxError(lines []string, report texlog.Report) *Error {
	return &Error{
		Kind:    KindSyntax,
		Message: MsgSyntax,
		RawLog:  lines,
		Trace:   report.Text(),
		Entries: report.Entries,
	}
}
