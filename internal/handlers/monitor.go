package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ytqm/ytqm/internal/chatwatch"
)

// StartMonitorHandler switches live chat monitoring on. The video id
// may be set at room creation or supplied here as a query parameter.
func (s *Server) StartMonitorHandler(w http.ResponseWriter, r *http.Request) {
	room := s.ownedRoom(w, r)
	if room == nil {
		return
	}

	if v := r.URL.Query().Get("video_id"); v != "" && v != room.VideoID {
		// new stream, restart the cursor
		if err := s.Store.SaveChatCursor(r.Context(), room.ID, "", ""); err != nil {
			s.Log.Errorf("failed to reset chat cursor for %s: %v", room.ID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		room.VideoID = v
	}
	if room.VideoID == "" {
		http.Error(w, "room has no video id", http.StatusBadRequest)
		return
	}

	if err := s.Store.SetMonitoring(r.Context(), room.ID, true); err != nil {
		s.Log.Errorf("failed to start monitoring for %s: %v", room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StopMonitorHandler switches live chat monitoring off and discards
// the chat cursor.
func (s *Server) StopMonitorHandler(w http.ResponseWriter, r *http.Request) {
	room := s.ownedRoom(w, r)
	if room == nil {
		return
	}
	if err := s.Store.SetMonitoring(r.Context(), room.ID, false); err != nil {
		s.Log.Errorf("failed to stop monitoring for %s: %v", room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PollHandler runs one chat poll cycle for the room. When another
// poller holds the lease the reply is 409 with a retry_after_ms hint.
func (s *Server) PollHandler(w http.ResponseWriter, r *http.Request) {
	room := s.ownedRoom(w, r)
	if room == nil {
		return
	}
	if s.Watcher == nil {
		http.Error(w, "chat polling is not configured", http.StatusServiceUnavailable)
		return
	}

	report, err := s.Watcher.Poll(r.Context(), room.ID)
	var held *chatwatch.LeaseHeldError
	if errors.As(err, &held) {
		retry := held.RetryAfter.Milliseconds()
		if retry < 0 {
			retry = 0
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":          "poll lease held",
			"retry_after_ms": retry,
		})
		return
	}
	if errors.Is(err, chatwatch.ErrNotMonitoring) {
		http.Error(w, "room is not monitoring chat", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.Log.Errorf("poll failed for %s: %v", room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if len(report.Added) > 0 || len(report.Reserved) > 0 || report.Stopped {
		s.invalidateOverlay(r, room.ID)
	}

	w.Header().Set("X-Next-Poll-Ms", strconv.FormatInt(report.NextPoll.Milliseconds(), 10))
	writeJSON(w, http.StatusOK, report)
}
