package models

import (
	"time"

	"github.com/google/uuid"
)

// Member source values.
const (
	SourceManual  = "manual"
	SourceYouTube = "youtube"
)

// Participant occupies one of the room's party slots. Party order is
// position ascending with joined_at as the tiebreak; positions are kept
// dense by the store after every structural change.
type Participant struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"-"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Position    int       `json:"position"`
	Source      string    `json:"source"`
	JoinedAt    time.Time `json:"joined_at"`
	IsNextLast  bool      `json:"is_next_last"`
}

// QueueEntry is a waiting member. Positions are a dense zero-based
// permutation of [0, len) after every committed change.
type QueueEntry struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"-"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Position     int       `json:"position"`
	Source       string    `json:"source"`
	RegisteredAt time.Time `json:"registered_at"`
	IsNextLast   bool      `json:"is_next_last"`
}

// Snapshot is the full authoritative view of a room's membership at a
// single order_version.
type Snapshot struct {
	Room         *Room         `json:"room"`
	Participants []Participant `json:"participants"`
	Queue        []QueueEntry  `json:"queue"`
}

// PartyUsernames returns the party membership in order.
func (s *Snapshot) PartyUsernames() []string {
	out := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		out[i] = p.Username
	}
	return out
}

// QueueUsernames returns the waiting queue membership in order.
func (s *Snapshot) QueueUsernames() []string {
	out := make([]string, len(s.Queue))
	for i, q := range s.Queue {
		out[i] = q.Username
	}
	return out
}
