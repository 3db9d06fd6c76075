package backend

import "github.com/seantiz/texwrap/internal/model"

// Default engine executables.
const (
	CommandPDFLaTeX = "pdflatex"
	CommandLaTeX    = "latex"
)

// KnownCommands lists the engines probed when reporting capabilities.
var KnownCommands = []string{CommandPDFLaTeX, CommandLaTeX, "xelatex", "lualatex"}

// ResolveCommand picks the executable for a request: the override when
// given, pdflatex for PDF output, latex for anything else.
func ResolveCommand(format, override string) string {
	if override != "" {
		return override
	}
	if format == model.FormatPDF {
		return CommandPDFLaTeX
	}
	return CommandLaTeX
}

// EngineArgs returns the fixed argument list: stop at the first error and
// never wait for terminal input.
func EngineArgs(source string) []string {
	return []string{"-halt-on-error", "-interaction=nonstopmode", source}
}
