// Package store defines the persistence contract the party queue core
// runs against: durable keyed rows, atomic multi-row transactions, and
// the per-room monotonic order_version counter. internal/database
// implements it on postgres; internal/memstore implements it in memory
// for tests and single-process development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/resolver"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already in room")
	ErrDuplicateEmail    = errors.New("email already registered")

	// ErrLeaseHeld means another holder currently owns the room's chat
	// polling lease.
	ErrLeaseHeld = errors.New("poll lease held by another poller")
)

// Store is the full surface the HTTP layer and the chat watcher need.
// Every method that changes party/queue membership or order commits
// atomically and bumps the room's order_version exactly once.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateRoom(ctx context.Context, room *models.Room) error
	Room(ctx context.Context, id uuid.UUID) (*models.Room, error)
	RoomSnapshot(ctx context.Context, id uuid.UUID) (*models.Snapshot, error)
	SetMonitoring(ctx context.Context, id uuid.UUID, on bool) error
	SaveChatCursor(ctx context.Context, id uuid.UUID, liveChatID, pageToken string) error

	// AddEntry places a new member into the party if a slot is free,
	// otherwise at the queue tail, and reports which list it landed in.
	AddEntry(ctx context.Context, roomID uuid.UUID, username, displayName, source string) (models.List, error)

	// RemoveMember deletes a member from the given list, renumbers
	// positions densely and refills the party from the queue head.
	RemoveMember(ctx context.Context, roomID uuid.UUID, list models.List, username string) error

	SetNextLast(ctx context.Context, roomID uuid.UUID, usernames []string) error
	ClearNextLast(ctx context.Context, roomID uuid.UUID) error

	// ApplyReorder runs the idempotency/conflict resolver against the
	// room inside one transaction with the room row locked.
	ApplyReorder(ctx context.Context, roomID uuid.UUID, req resolver.Request) (*models.ReorderResult, error)

	// Rotate runs one rotation batch (plain, or next-last-aware while
	// chat monitoring is active).
	Rotate(ctx context.Context, roomID uuid.UUID) (*models.RotationResult, error)

	// AcquirePollLease claims or renews the room's chat polling lease.
	// Returns ErrLeaseHeld (with the current lease) when another holder
	// owns it and it has not expired.
	AcquirePollLease(ctx context.Context, roomID uuid.UUID, holderID string, ttl time.Duration) (*models.PollLease, error)
}
