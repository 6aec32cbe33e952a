package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/lockbridge/internal/fulfillment"
)

// handleFulfillment processes a smart home intent request.
//
// Per-device failures are reported inside the response payload with HTTP
// 200; only a malformed envelope earns a 4xx.
func (s *Server) handleFulfillment(w http.ResponseWriter, r *http.Request) {
	var req fulfillment.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	resp, err := s.fulfillment.Handle(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, fulfillment.ErrNoInputs),
			errors.Is(err, fulfillment.ErrUnknownIntent),
			errors.Is(err, fulfillment.ErrInvalidPayload):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("fulfillment failed", "error", err, "request_id", req.RequestID)
			writeInternalError(w, "fulfillment failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
