package api

import (
	"net/http"

	"github.com/seantiz/texwrap/internal/model"
)

// statsResponse is the body of GET /v1/stats. SuccessRate is the share of
// finished compiles that produced an artifact, 0 when none finished.
type statsResponse struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	ByFormat      map[string]int `json:"by_format"`
	ByErrorKind   map[string]int `json:"by_error_kind"`
	SuccessRate   float64        `json:"success_rate"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetJobStats(r.Context())
	if err != nil {
		s.logger.Error("job stats query failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	resp := statsResponse{
		Total:         st.Total,
		ByStatus:      st.CountByStatus,
		ByFormat:      st.CountByFormat,
		ByErrorKind:   st.CountByKind,
		AvgDurationMS: st.AvgDurationMS,
	}
	ok, failed := st.CountByStatus[model.StatusCompleted], st.CountByStatus[model.StatusFailed]
	if ok+failed > 0 {
		resp.SuccessRate = float64(ok) / float64(ok+failed)
	}
	s.writeJSON(w, http.StatusOK, resp)
}
