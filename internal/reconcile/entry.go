package reconcile

import (
	"github.com/google/uuid"

	"github.com/ytqm/ytqm/internal/models"
)

// EntryRef identifies a rendered row. A Committed ref carries the
// server-issued row id; a Pending ref is a synthetic identity for a
// member rendered optimistically after a cross-list move, before the
// server has assigned the real row. Keeping the two as a tagged
// variant (rather than a string prefix convention) makes collision
// with real ids impossible.
type EntryRef struct {
	id         uuid.UUID
	clientOpID string
	pending    bool
}

// CommittedRef wraps a server-issued row id.
func CommittedRef(id uuid.UUID) EntryRef {
	return EntryRef{id: id}
}

// PendingRef tags a synthetic row created by the optimistic apply for
// the given in-flight operation.
func PendingRef(clientOpID string) EntryRef {
	return EntryRef{clientOpID: clientOpID, pending: true}
}

// Pending reports whether the row identity is still client-synthesized.
func (r EntryRef) Pending() bool { return r.pending }

// ID returns the server row id; only meaningful when !Pending().
func (r EntryRef) ID() uuid.UUID { return r.id }

// ClientOpID returns the operation that synthesized a pending ref.
func (r EntryRef) ClientOpID() string { return r.clientOpID }

// Entry is one rendered row of either list.
type Entry struct {
	Ref         EntryRef
	Username    string
	DisplayName string
	Source      string
	NextLast    bool
}

// View is the reconciler's local mirror of a room's membership.
type View struct {
	Version   int64
	PartySize int
	Party     []Entry
	Queue     []Entry
}

func entriesFromParticipants(rows []models.Participant) []Entry {
	out := make([]Entry, len(rows))
	for i, p := range rows {
		out[i] = Entry{
			Ref:         CommittedRef(p.ID),
			Username:    p.Username,
			DisplayName: p.DisplayName,
			Source:      p.Source,
			NextLast:    p.IsNextLast,
		}
	}
	return out
}

func entriesFromQueue(rows []models.QueueEntry) []Entry {
	out := make([]Entry, len(rows))
	for i, q := range rows {
		out[i] = Entry{
			Ref:         CommittedRef(q.ID),
			Username:    q.Username,
			DisplayName: q.DisplayName,
			Source:      q.Source,
			NextLast:    q.IsNextLast,
		}
	}
	return out
}

func usernames(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Username
	}
	return out
}
