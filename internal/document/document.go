// Package document validates the forms a compile request may carry its
// source in and materializes them as the file the engine reads.
package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
)

// File names used inside a workspace. The engine derives the log and
// artifact names from the source stem.
const (
	Stem       = "texput"
	SourceName = Stem + ".tex"
	LogName    = Stem + ".log"
)

// ArtifactName returns the file name the engine writes its output to.
// format must satisfy ValidFormat.
func ArtifactName(format string) string {
	return Stem + "." + format
}

// formatPattern keeps the artifact name a plain file inside the workspace.
var formatPattern = regexp.MustCompile(`^[a-z0-9]{1,16}$`)

// ValidFormat reports whether format can name an artifact.
func ValidFormat(format string) bool {
	return formatPattern.MatchString(format)
}

var (
	// ErrInvalid is returned for values that are none of the supported forms.
	ErrInvalid = errors.New("Invalid document")
	// ErrInvalidFormat is returned for output formats ValidFormat rejects.
	ErrInvalidFormat = errors.New("Invalid format")
)

// Document is one of Text, Chunks or Stream.
type Document interface {
	// Form names the document form for logs and metrics.
	Form() string
	writeTo(w io.Writer) error
}

// Text is a document held in memory as a single value.
type Text []byte

func (Text) Form() string { return "text" }

func (t Text) writeTo(w io.Writer) error {
	_, err := w.Write(t)
	return err
}

// Chunks is a document held as an ordered sequence of pieces.
type Chunks [][]byte

func (Chunks) Form() string { return "chunks" }

func (c Chunks) writeTo(w io.Writer) error {
	for _, chunk := range c {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// Stream is a document read from a live byte source. The source is pulled
// as the file is written, so a slow producer slows the writer down rather
// than being buffered in memory.
type Stream struct {
	r io.Reader
}

// NewStream wraps r as a Stream document. The caller keeps ownership of r.
func NewStream(r io.Reader) Stream {
	return Stream{r: r}
}

func (Stream) Form() string { return "stream" }

func (s Stream) writeTo(w io.Writer) error {
	_, err := io.Copy(w, s.r)
	return err
}

// From maps a caller-supplied value onto a Document: strings and byte
// slices become Text, string and byte-slice sequences become Chunks, and any
// io.Reader becomes a Stream. Anything else yields ErrInvalid.
func From(v any) (Document, error) {
	switch d := v.(type) {
	case Stream:
		if isNilReader(d.r) {
			return nil, ErrInvalid
		}
		return d, nil
	case Document:
		return d, nil
	case string:
		return Text(d), nil
	case []byte:
		return Text(d), nil
	case []string:
		chunks := make(Chunks, len(d))
		for i, s := range d {
			chunks[i] = []byte(s)
		}
		return chunks, nil
	case [][]byte:
		return Chunks(d), nil
	case io.Reader:
		if isNilReader(d) {
			return nil, ErrInvalid
		}
		return NewStream(d), nil
	}
	return nil, ErrInvalid
}

// isNilReader catches typed nils such as (*bytes.Buffer)(nil), which would
// only fail once the stream is copied.
func isNilReader(r io.Reader) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Write materializes doc as SourceName inside dir and returns its path.
// It returns only after every byte is flushed and the file is closed.
func Write(dir string, doc Document) (string, error) {
	path := filepath.Join(dir, SourceName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create source: %w", err)
	}

	if err := doc.writeTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s source: %w", doc.Form(), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", fmt.Errorf("sync source: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close source: %w", err)
	}
	return path, nil
}
