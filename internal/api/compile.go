package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/seantiz/texwrap/internal/document"
	"github.com/seantiz/texwrap/internal/engine"
)

const (
	headerJobID = "X-Job-Id"

	// copyBufferSize is also the size of the first read, which decides
	// between the artifact and an error response.
	copyBufferSize = 32 << 10
)

var contentTypes = map[string]string{
	"pdf": "application/pdf",
	"dvi": "application/x-dvi",
	"ps":  "application/postscript",
}

// compileRequest is the JSON body form of POST /v1/compile. Exactly one of
// Document and Chunks is used.
type compileRequest struct {
	Document *string  `json:"document"`
	Chunks   []string `json:"chunks"`
}

// compileErrorResponse is the body of a failed compile.
type compileErrorResponse struct {
	Error   string         `json:"error"`
	Kind    engine.Kind    `json:"kind"`
	JobID   string         `json:"job_id,omitempty"`
	Trace   string         `json:"trace,omitempty"`
	RawLog  []string       `json:"raw_log,omitempty"`
	Entries []logEntryView `json:"entries,omitempty"`
}

type logEntryView struct {
	Line    int      `json:"line,omitempty"`
	Message string   `json:"message"`
	Context []string `json:"context,omitempty"`
}

// handleCompile compiles the request body and responds with the artifact,
// or with a JSON description of the failure. A JSON body carries the
// document as text or chunks; any other body is the document itself and is
// streamed into the workspace.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = s.opts.DefaultFormat
	}
	if !document.ValidFormat(format) {
		s.writeError(w, http.StatusBadRequest, "invalid format")
		return
	}
	command := q.Get("command")
	if command != "" && (s.opts.CommandAllowed == nil || !s.opts.CommandAllowed(command)) {
		s.writeError(w, http.StatusBadRequest, "command not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var doc any = r.Body
	if isJSON(r) {
		var req compileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		switch {
		case req.Document != nil:
			doc = *req.Document
		case req.Chunks != nil:
			doc = req.Chunks
		default:
			s.writeError(w, http.StatusBadRequest, "document or chunks is required")
			return
		}
	}

	res, err := s.engine.Submit(doc, engine.Options{Format: format, Command: command})
	if err != nil {
		s.writeCompileError(w, "", err)
		return
	}
	defer res.Close()

	// Compiles are not bounded in time, so neither is the response.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("clear write deadline for compile", "error", err)
	}

	buf := make([]byte, copyBufferSize)
	n, err := res.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeCompileError(w, res.JobID(), err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": document.ArtifactName(format)}))
	w.Header().Set(headerJobID, res.JobID())
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(buf[:n]); err != nil {
		return
	}
	if _, err := io.CopyBuffer(w, res, buf); err != nil {
		// Headers are gone; the client sees a truncated body.
		s.logger.Error("stream artifact", "job_id", res.JobID(), "error", err)
	}
}

// writeCompileError maps a compile failure onto a status code and body.
func (s *Server) writeCompileError(w http.ResponseWriter, jobID string, err error) {
	var cerr *engine.Error
	if !errors.As(err, &cerr) {
		s.logger.Error("submit compile", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit compile")
		return
	}

	if jobID != "" {
		w.Header().Set(headerJobID, jobID)
	}
	resp := compileErrorResponse{
		Error:  cerr.Error(),
		Kind:   cerr.Kind,
		JobID:  jobID,
		Trace:  cerr.Trace,
		RawLog: cerr.RawLog,
	}
	for _, e := range cerr.Entries {
		resp.Entries = append(resp.Entries, logEntryView{Line: e.Line, Message: e.Message, Context: e.Context})
	}
	s.writeJSON(w, compileStatus(cerr), resp)
}

func compileStatus(cerr *engine.Error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(cerr, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch cerr.Kind {
	case engine.KindInput:
		return http.StatusBadRequest
	case engine.KindSyntax, engine.KindNoMarker:
		return http.StatusUnprocessableEntity
	case engine.KindEngineNotFound:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func contentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
