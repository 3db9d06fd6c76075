package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/seantiz/texwrap/internal/model"
)

// handleStreamLogs streams a running job's engine output as server-sent
// events, ending with a "done" event.
func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if model.IsTerminal(job.Status) {
		w.WriteHeader(http.StatusOK)
		_ = writeSSEEvent(w, "done", job.Status)
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// A job that finished since the status check has a closed topic, so
	// the loop below ends at once.
	ch, unsub := s.engine.Broker().Subscribe(job.ID)
	defer unsub()

	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Debug("flush SSE headers", "error", err)
	}

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, "done", s.finalStatus(r, job))
				_ = rc.Flush()
				return
			}
			if err := writeSSEData(w, line); err != nil {
				return
			}
			_ = rc.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// finalStatus re-reads job after its output topic closed. The store is
// updated before the topic closes, so this is normally terminal.
func (s *Server) finalStatus(r *http.Request, job *model.Job) string {
	cur, err := s.store.GetJob(r.Context(), job.ID)
	if err != nil {
		s.logger.Debug("reload job for done event", "job_id", job.ID, "error", err)
		return job.Status
	}
	return cur.Status
}

// logHistoryLine is a single log line in the history response.
type logHistoryLine struct {
	Seq       int    `json:"seq"`
	Line      string `json:"line"`
	CreatedAt string `json:"created_at"`
}

// logHistoryResponse is the JSON response for GET /v1/jobs/{id}/logs/history.
type logHistoryResponse struct {
	JobID string           `json:"job_id"`
	Lines []logHistoryLine `json:"lines"`
}

func (s *Server) handleGetLogHistory(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	logLines, err := s.store.GetLogLines(r.Context(), job.ID)
	if err != nil {
		s.logger.Error("get log lines", "job_id", job.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get log lines")
		return
	}

	lines := make([]logHistoryLine, len(logLines))
	for i, l := range logLines {
		lines[i] = logHistoryLine{
			Seq:       l.Seq,
			Line:      l.Line,
			CreatedAt: l.CreatedAt.Format(time.RFC3339),
		}
	}

	s.writeJSON(w, http.StatusOK, logHistoryResponse{
		JobID: job.ID,
		Lines: lines,
	})
}

// writeSSEData writes one data event. Each line of a multi-line payload
// gets its own "data:" field.
func writeSSEData(w http.ResponseWriter, line string) error {
	var b strings.Builder
	for seg := range strings.SplitSeq(line, "\n") {
		b.WriteString("data: ")
		b.WriteString(seg)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := w.Write([]byte(b.String()))
	return err
}

// writeSSEEvent writes a named event with a single data line.
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	return err
}
