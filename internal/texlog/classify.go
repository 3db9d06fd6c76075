package texlog

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LineClass tags a log line for the scanner.
type LineClass int

const (
	// Other is any line the scanner has no rule for.
	Other LineClass = iota
	// MarkerStart is a line beginning with "!", opening a diagnostic.
	MarkerStart
	// LocationLine is an "l.<N><rest>" line naming the source line.
	LocationLine
	// Continuation is a line beginning with whitespace.
	Continuation
)

func (c LineClass) String() string {
	switch c {
	case MarkerStart:
		return "marker_start"
	case LocationLine:
		return "location"
	case Continuation:
		return "continuation"
	default:
		return "other"
	}
}

var locationRe = regexp.MustCompile(`^l\.(\d+)(.+)`)

// Classify tags a single log line.
func Classify(line string) LineClass {
	switch {
	case strings.HasPrefix(line, "!"):
		return MarkerStart
	case locationRe.MatchString(line):
		return LocationLine
	case startsWithSpace(line):
		return Continuation
	}
	return Other
}

func startsWithSpace(line string) bool {
	r, size := utf8.DecodeRuneInString(line)
	return size > 0 && unicode.IsSpace(r)
}
