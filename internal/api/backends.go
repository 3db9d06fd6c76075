package api

import (
	"net/http"

	"github.com/seantiz/texwrap/internal/backend"
)

type backendsResponse struct {
	Active   string                `json:"active"`
	Backends []backend.BackendInfo `json:"backends"`
}

func (s *Server) handleListBackends(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, backendsResponse{
		Active:   s.engine.BackendName(),
		Backends: s.registry.List(),
	})
}
