package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lockbridge/internal/device"
)

// handleGetDeviceState returns the current flattened state of one device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	state, err := s.store.GetState(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("state read failed", "device_id", id, "error", err)
		writeInternalError(w, "state read failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"state":     state.Flatten(),
	})
}

// stateUpdateRequest is a partial state update. Omitted fields keep their
// stored values.
type stateUpdateRequest struct {
	IsLocked *bool   `json:"isLocked"`
	IsJammed *bool   `json:"isJammed"`
	Online   *bool   `json:"online"`
	Status   *string `json:"status"`
}

// handleUpdateDeviceState applies an out-of-band state update, e.g. from a
// sensor webhook or manual tooling. The write flows through the store, so
// it triggers the same state report as any other mutation.
func (s *Server) handleUpdateDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req stateUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.IsLocked == nil && req.IsJammed == nil && req.Online == nil && req.Status == nil {
		writeBadRequest(w, "no state fields provided")
		return
	}

	delta := device.LockUnlockDelta{
		IsLocked: req.IsLocked,
		IsJammed: req.IsJammed,
		Online:   req.Online,
		Status:   req.Status,
	}

	updated, err := s.store.MergeLockUnlock(r.Context(), id, delta, device.SourceExternal)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrTraitNotSupported):
			writeBadRequest(w, "device does not support lock state")
		default:
			s.logger.Error("state update failed", "device_id", id, "error", err)
			writeInternalError(w, "state update failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"state":     updated.Flatten(),
	})
}

// handleDeviceHistory returns recent state changes for one device,
// newest first. Optional ?limit= caps the result count.
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "state history not enabled")
		return
	}

	id := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.GetHistory(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("history read failed", "device_id", id, "error", err)
		writeInternalError(w, "history read failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"entries":   entries,
	})
}
