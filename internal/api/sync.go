package api

import (
	"fmt"
	"net/http"
)

// handleRequestSync asks the platform to re-run SYNC for the agent user.
//
// It is called after the device catalog changes (new lock commissioned,
// one removed). The platform's raw response is relayed to the caller; a
// failure returns 500 with the error detail, matching what the sample web
// tooling expects to display.
func (s *Server) handleRequestSync(w http.ResponseWriter, r *http.Request) {
	// The sample web UI calls this cross-origin.
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if s.homegraph == nil {
		writeInternalError(w, "request sync not configured")
		return
	}

	body, err := s.homegraph.RequestSync(r.Context(), s.agentUserID)
	if err != nil {
		s.logger.Error("request sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal,
			fmt.Sprintf("request sync failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response
	w.Write(body)
}
