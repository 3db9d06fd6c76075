package texlog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Entry is one diagnostic reported by the engine.
type Entry struct {
	// Line is the source line the engine pointed at. Zero when unlocated.
	Line    int      `json:"line"`
	Message string   `json:"message"`
	Context []string `json:"context,omitempty"`
	// Located is false for a diagnostic that never got a location line.
	Located bool `json:"located"`
	// Raw is the diagnostic line as it appeared in the log.
	Raw string `json:"raw"`
}

// String formats the entry as it appears in the trace. Located entries read
// "Line <N>: <message>" followed by their context lines; unlocated entries
// are reproduced verbatim.
func (e Entry) String() string {
	if !e.Located {
		return e.Raw
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Line %d: %s", e.Line, e.Message)
	for _, c := range e.Context {
		b.WriteByte('\n')
		b.WriteString(c)
	}
	return b.String()
}

// Report is the outcome of scanning a log.
type Report struct {
	Entries []Entry
}

// Empty reports whether the log contained no diagnostics.
func (r Report) Empty() bool {
	return len(r.Entries) == 0
}

// Text renders the trace: entries joined by newlines, each located entry
// followed by a blank separator line.
func (r Report) Text() string {
	parts := make([]string, 0, 2*len(r.Entries))
	for _, e := range r.Entries {
		parts = append(parts, e.String())
		if e.Located {
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, "\n")
}

type state int

const (
	stateIdle state = iota
	statePendingMessage
)

// scanner holds the state machine. In stateIdle only a MarkerStart line has
// an effect; in statePendingMessage a LocationLine closes the message.
type scanner struct {
	state   state
	raw     string
	message string
	entries []Entry
}

// Scan runs the state machine over non-empty log lines.
func Scan(lines []string) Report {
	s := &scanner{}
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch Classify(line) {
		case MarkerStart:
			s.flush()
			s.state = statePendingMessage
			s.raw = line
			s.message = strings.TrimSpace(strings.TrimPrefix(line, "!"))

		case LocationLine:
			if s.state != statePendingMessage {
				continue
			}
			m := locationRe.FindStringSubmatch(line)
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			context := []string{m[2]}
			for i+1 < len(lines) && Classify(lines[i+1]) == Continuation {
				i++
				context = append(context, reindent(lines[i]))
			}
			s.entries = append(s.entries, Entry{
				Line:    n,
				Message: s.message,
				Context: context,
				Located: true,
				Raw:     s.raw,
			})
			s.reset()
		}
	}
	s.flush()
	return Report{Entries: s.entries}
}

// flush records a pending message that never got a location line.
func (s *scanner) flush() {
	if s.state != statePendingMessage {
		return
	}
	s.entries = append(s.entries, Entry{
		Message: s.message,
		Raw:     s.raw,
	})
	s.reset()
}

func (s *scanner) reset() {
	s.state = stateIdle
	s.raw = ""
	s.message = ""
}

// reindent replaces a line's leading whitespace with two spaces.
func reindent(line string) string {
	return "  " + strings.TrimLeftFunc(line, unicode.IsSpace)
}
