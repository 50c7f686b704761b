package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/store"
)

// overlayView is the trimmed snapshot the browser source polls. The
// queue is omitted when the room hides it.
type overlayView struct {
	RoomName     string               `json:"room_name"`
	OrderVersion int64                `json:"order_version"`
	Participants []models.Participant `json:"participants"`
	Queue        []models.QueueEntry  `json:"queue,omitempty"`
}

// OverlayHandler serves the public read-only overlay. The token is the
// room id; no credentials are required, so the response carries no
// owner or chat cursor fields. Snapshots come from the Redis cache
// when one is configured.
func (s *Server) OverlayHandler(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	id, err := uuid.Parse(token)
	if err != nil {
		http.Error(w, "invalid overlay token", http.StatusBadRequest)
		return
	}

	snap, err := s.Overlay.Get(r.Context(), token)
	if err != nil {
		s.Log.Warnf("overlay cache read failed for %s: %v", token, err)
	}
	if snap == nil {
		snap, err = s.Store.RoomSnapshot(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.Log.Errorf("failed to load snapshot for %s: %v", id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err := s.Overlay.Set(r.Context(), token, snap); err != nil {
			s.Log.Warnf("overlay cache write failed for %s: %v", token, err)
		}
	}

	view := overlayView{
		RoomName:     snap.Room.Name,
		OrderVersion: snap.Room.OrderVersion,
		Participants: snap.Participants,
	}
	if snap.Room.OverlayShowQueue {
		view.Queue = snap.Queue
	}
	writeJSON(w, http.StatusOK, view)
}
