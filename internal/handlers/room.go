package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/store"
)

type createRoomRequest struct {
	Name             string `json:"name"`
	Keyword          string `json:"keyword"`
	NextLastKeyword  string `json:"next_last_keyword"`
	PartySize        int    `json:"party_size"`
	RotateCount      int    `json:"rotate_count"`
	OverlayShowQueue *bool  `json:"overlay_show_queue"`
	VideoID          string `json:"youtube_video_id"`
}

// CreateRoomHandler creates a room. A valid bearer token makes the
// caller the owner; without one the room is open.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.PartySize < 1 {
		http.Error(w, "party_size must be at least 1", http.StatusBadRequest)
		return
	}
	if req.RotateCount < 1 {
		http.Error(w, "rotate_count must be at least 1", http.StatusBadRequest)
		return
	}

	room := models.Room{
		OwnerID:          s.bearerUserID(r),
		Name:             req.Name,
		Keyword:          req.Keyword,
		NextLastKeyword:  req.NextLastKeyword,
		PartySize:        req.PartySize,
		RotateCount:      req.RotateCount,
		OverlayShowQueue: true,
		VideoID:          req.VideoID,
	}
	if req.OverlayShowQueue != nil {
		room.OverlayShowQueue = *req.OverlayShowQueue
	}

	if err := s.Store.CreateRoom(r.Context(), &room); err != nil {
		s.Log.Errorf("failed to create room: %v", err)
		http.Error(w, "error creating room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// GetRoomHandler returns the authoritative room snapshot.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshotOr500(w, r)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) snapshotOr500(w http.ResponseWriter, r *http.Request) *models.Snapshot {
	id, err := roomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return nil
	}
	snap, err := s.Store.RoomSnapshot(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		s.Log.Errorf("failed to load snapshot for %s: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	return snap
}

// ListParticipantsHandler returns the party in order.
func (s *Server) ListParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshotOr500(w, r)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, snap.Participants)
}

// ListQueueHandler returns the waiting queue in order.
func (s *Server) ListQueueHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshotOr500(w, r)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, snap.Queue)
}

type addEntryRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// AddEntryHandler adds a member manually: into the party if a slot is
// free, otherwise at the queue tail.
func (s *Server) AddEntryHandler(w http.ResponseWriter, r *http.Request) {
	room := s.ownedRoom(w, r)
	if room == nil {
		return
	}

	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	dest, err := s.Store.AddEntry(r.Context(), room.ID, req.Username, req.DisplayName, models.SourceManual)
	if errors.Is(err, store.ErrDuplicateUsername) {
		http.Error(w, "username already in room", http.StatusConflict)
		return
	}
	if err != nil {
		s.Log.Errorf("failed to add entry to %s: %v", room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.invalidateOverlay(r, room.ID)

	writeJSON(w, http.StatusCreated, map[string]any{"placed_in": dest})
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request, list models.List) {
	room := s.ownedRoom(w, r)
	if room == nil {
		return
	}
	username := r.PathValue("username")

	err := s.Store.RemoveMember(r.Context(), room.ID, list, username)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Log.Errorf("failed to remove %s from %s: %v", username, room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.invalidateOverlay(r, room.ID)

	snap, err := s.Store.RoomSnapshot(r.Context(), room.ID)
	if err != nil {
		s.Log.Errorf("failed to reload snapshot for %s: %v", room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RemoveParticipantHandler drops a party member; the queue head is
// promoted into the freed slot.
func (s *Server) RemoveParticipantHandler(w http.ResponseWriter, r *http.Request) {
	s.removeMember(w, r, models.ListParty)
}

// RemoveQueueEntryHandler drops a waiting member.
func (s *Server) RemoveQueueEntryHandler(w http.ResponseWriter, r *http.Request) {
	s.removeMember(w, r, models.ListQueue)
}

// ClearNextLastHandler removes every next-last reservation in the room.
func (s *Server) ClearNextLastHandler(w http.ResponseWriter, r *http.Request) {
	room := s.ownedRoom(w, r)
	if room == nil {
		return
	}
	if err := s.Store.ClearNextLast(r.Context(), room.ID); err != nil {
		s.Log.Errorf("failed to clear next-last for %s: %v", room.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.invalidateOverlay(r, room.ID)
	w.WriteHeader(http.StatusNoContent)
}
