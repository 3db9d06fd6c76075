package engine

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Result is the lazy output of one compile. Reading it yields the artifact
// bytes followed by io.EOF, or returns a single *Error. It can be consumed
// once. Closing it early abandons the compile's output.
type Result struct {
	jobID string
	pr    *io.PipeReader
	pw    *io.PipeWriter

	// settle guards the producer side so only one outcome is ever delivered.
	settle sync.Once
}

func newResult(jobID string) *Result {
	pr, pw := io.Pipe()
	return &Result{jobID: jobID, pr: pr, pw: pw}
}

// JobID returns the id of the job backing this result.
func (r *Result) JobID() string {
	return r.jobID
}

// Read reads artifact bytes. A failed compile returns its *Error.
func (r *Result) Read(p []byte) (int, error) {
	return r.pr.Read(p)
}

// Close abandons the result. A producer still streaming stops at its next
// write.
func (r *Result) Close() error {
	return r.pr.Close()
}

// Bytes drains the result and closes it.
func (r *Result) Bytes() ([]byte, error) {
	defer r.Close()
	return io.ReadAll(r)
}

// fail delivers err as the outcome. It reports false if an outcome was
// already delivered.
func (r *Result) fail(err *Error) bool {
	delivered := false
	r.settle.Do(func() {
		delivered = true
		r.pw.CloseWithError(err)
	})
	return delivered
}

// stream copies src into the pipe and then signals end of stream. It
// blocks until the consumer has read everything or closed the result.
// A read failure on src is delivered to the consumer as a workspace error.
func (r *Result) stream(src io.Reader) (n int64, err error) {
	err = errAlreadySettled
	r.settle.Do(func() {
		n, err = io.Copy(r.pw, src)
		if err != nil {
			if !errors.Is(err, io.ErrClosedPipe) {
				r.pw.CloseWithError(workspaceError(fmt.Errorf("read artifact: %w", err)))
			}
			return
		}
		r.pw.Close()
	})
	return n, err
}

var errAlreadySettled = errors.New("result already settled")
