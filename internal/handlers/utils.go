package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/store"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func roomIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

// bearerUserID verifies the session token from the Authorization
// bearer header or the auth_token cookie, returning the authenticated
// user id, or Nil when absent/invalid.
func (s *Server) bearerUserID(r *http.Request) uuid.UUID {
	if s.Tokens == nil {
		return uuid.Nil
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		c, err := r.Cookie("auth_token")
		if err != nil {
			return uuid.Nil
		}
		token = c.Value
	}
	sub, err := s.Tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ownedRoom loads the room and enforces ownership: rooms created with
// an owner only accept mutations from that owner's token; rooms without
// one are open. Writes the error response itself on failure.
func (s *Server) ownedRoom(w http.ResponseWriter, r *http.Request) *models.Room {
	id, err := roomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return nil
	}
	room, err := s.Store.Room(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		s.Log.Errorf("failed to load room %s: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if room.OwnerID != uuid.Nil && s.bearerUserID(r) != room.OwnerID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil
	}
	return room
}

// invalidateOverlay drops the cached overlay snapshot after a
// committed structural change. Cache errors are logged, not surfaced.
func (s *Server) invalidateOverlay(r *http.Request, roomID uuid.UUID) {
	if err := s.Overlay.Invalidate(r.Context(), roomID.String()); err != nil {
		s.Log.Warnf("overlay invalidate failed for %s: %v", roomID, err)
	}
}
