package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is a row in the rooms table. OrderVersion is the per-room
// concurrency token; it is bumped only by the store's commit paths
// (reorder, rotation, entry add/remove, chat feeder) and never by
// callers directly.
type Room struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          uuid.UUID `json:"-"`
	Name             string    `json:"name"`
	Keyword          string    `json:"keyword"`
	NextLastKeyword  string    `json:"next_last_keyword"`
	PartySize        int       `json:"party_size"`
	RotateCount      int       `json:"rotate_count"`
	IsMonitoring     bool      `json:"is_monitoring"`
	OverlayShowQueue bool      `json:"overlay_show_queue"`

	// Live chat polling cursor. VideoID is set by the owner; LiveChatID
	// and NextPageToken are maintained by the chat watcher.
	VideoID       string `json:"youtube_video_id,omitempty"`
	LiveChatID    string `json:"-"`
	NextPageToken string `json:"-"`

	OrderVersion int64     `json:"order_version"`
	CreatedAt    time.Time `json:"created_at"`
}

// PollLease is a time-bounded claim on a room's chat polling stream.
// At most one holder may poll a room at a time; an expired lease may be
// taken over by any holder.
type PollLease struct {
	RoomID    uuid.UUID
	HolderID  string
	ExpiresAt time.Time
}
