package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ytqm/ytqm/internal/engine"
	"github.com/ytqm/ytqm/internal/metrics"
	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/resolver"
)

type reorderRequest struct {
	ExpectedVersion int64            `json:"expected_version"`
	ClientOpID      string           `json:"client_op_id"`
	Op              models.ReorderOp `json:"op"`
}

// ReorderHandler applies one drag-and-drop intent. The resolver
// outcome picks the HTTP status: ok and replay are 200,
// version_conflict and op_id_mismatch are 409, reject is 400. The body
// always carries the authoritative lists so a conflicted client can
// resync from the response alone.
func (s *Server) ReorderHandler(w http.ResponseWriter, r *http.Request) {
	room := s.ownedRoom(w, r)
	if room == nil {
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	result, err := s.Store.ApplyReorder(r.Context(), room.ID, resolver.Request{
		ExpectedVersion: req.ExpectedVersion,
		ClientOpID:      req.ClientOpID,
		Op:              req.Op,
	})
	if err != nil {
		s.Log.Errorf("reorder failed for %s: %v", room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	metrics.ReorderOutcomes.WithLabelValues(string(result.Status)).Inc()

	code := http.StatusOK
	switch result.Status {
	case models.OutcomeOK:
		s.invalidateOverlay(r, room.ID)
	case models.OutcomeReplay:
	case models.OutcomeVersionConflict, models.OutcomeOpIDMismatch:
		code = http.StatusConflict
	default:
		code = http.StatusBadRequest
	}
	writeJSON(w, code, result)
}

type rotateResponse struct {
	Message string `json:"message"`
	*models.RotationResult
}

// RotateHandler commits one rotation batch.
func (s *Server) RotateHandler(w http.ResponseWriter, r *http.Request) {
	room := s.ownedRoom(w, r)
	if room == nil {
		return
	}

	result, err := s.Store.Rotate(r.Context(), room.ID)
	if errors.Is(err, engine.ErrNothingToRotate) {
		http.Error(w, "nothing to rotate", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.Log.Errorf("rotation failed for %s: %v", room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	mode := "plain"
	if room.IsMonitoring {
		mode = "next_last"
	}
	metrics.Rotations.WithLabelValues(mode).Inc()
	s.invalidateOverlay(r, room.ID)

	msg := fmt.Sprintf("rotated %d out, promoted %d", len(result.RotatedRegular), len(result.Promoted))
	writeJSON(w, http.StatusOK, rotateResponse{Message: msg, RotationResult: result})
}
