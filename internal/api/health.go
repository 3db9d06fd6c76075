package api

import (
	"net/http"
	"os"
)

type healthResponse struct {
	Status        string `json:"status"`
	WorkspaceRoot string `json:"workspace_root,omitempty"`
}

// handleHealthz reports ok. Once the workspace root exists it also
// verifies that the root is still a directory.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	root, started := s.engine.WorkspaceRoot()
	if !started {
		s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "workspace root unavailable", WorkspaceRoot: root})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", WorkspaceRoot: root})
}
