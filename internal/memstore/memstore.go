// Package memstore is an in-memory implementation of the store
// contract. It backs handler and watcher tests and the dev server when
// no DATABASE_URL is configured; the transactional guarantees reduce
// to one mutex over all rooms.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytqm/ytqm/internal/engine"
	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/resolver"
	"github.com/ytqm/ytqm/internal/store"
)

type roomState struct {
	room         models.Room
	participants []models.Participant
	queue        []models.QueueEntry
	nextLast     map[string]bool
	ops          map[string]resolver.AppliedOp
	lease        *models.PollLease
}

// Store implements store.Store in memory.
type Store struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*roomState
	users map[uuid.UUID]*models.User
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		rooms: make(map[uuid.UUID]*roomState),
		users: make(map[uuid.UUID]*models.User),
	}
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicateEmail
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	room.CreatedAt = time.Now()
	s.rooms[room.ID] = &roomState{
		room:     *room,
		nextLast: make(map[string]bool),
		ops:      make(map[string]resolver.AppliedOp),
	}
	return nil
}

func (s *Store) Room(_ context.Context, id uuid.UUID) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	room := rs.room
	return &room, nil
}

func (s *Store) RoomSnapshot(_ context.Context, id uuid.UUID) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rs.snapshot(), nil
}

func (rs *roomState) snapshot() *models.Snapshot {
	room := rs.room
	snap := &models.Snapshot{
		Room:         &room,
		Participants: slices.Clone(rs.participants),
		Queue:        slices.Clone(rs.queue),
	}
	for i := range snap.Participants {
		snap.Participants[i].IsNextLast = rs.nextLast[snap.Participants[i].Username]
	}
	for i := range snap.Queue {
		snap.Queue[i].IsNextLast = rs.nextLast[snap.Queue[i].Username]
	}
	return snap
}

func (s *Store) SetMonitoring(_ context.Context, id uuid.UUID, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[id]
	if !ok {
		return store.ErrNotFound
	}
	rs.room.IsMonitoring = on
	if !on {
		rs.room.LiveChatID = ""
		rs.room.NextPageToken = ""
	}
	return nil
}

func (s *Store) SaveChatCursor(_ context.Context, id uuid.UUID, liveChatID, pageToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[id]
	if !ok {
		return store.ErrNotFound
	}
	rs.room.LiveChatID = liveChatID
	rs.room.NextPageToken = pageToken
	return nil
}

func (s *Store) AddEntry(_ context.Context, roomID uuid.UUID, username, displayName, source string) (models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return "", store.ErrNotFound
	}

	username = strings.TrimSpace(username)
	if displayName == "" {
		displayName = username
	}
	for _, p := range rs.participants {
		if p.Username == username {
			return "", store.ErrDuplicateUsername
		}
	}
	for _, q := range rs.queue {
		if q.Username == username {
			return "", store.ErrDuplicateUsername
		}
	}

	dest := models.ListQueue
	if len(rs.participants) < rs.room.PartySize {
		dest = models.ListParty
		rs.participants = append(rs.participants, models.Participant{
			ID: uuid.New(), RoomID: roomID, Username: username,
			DisplayName: displayName, Position: len(rs.participants),
			Source: source, JoinedAt: time.Now(),
		})
	} else {
		rs.queue = append(rs.queue, models.QueueEntry{
			ID: uuid.New(), RoomID: roomID, Username: username,
			DisplayName: displayName, Position: len(rs.queue),
			Source: source, RegisteredAt: time.Now(),
		})
	}
	rs.room.OrderVersion++
	return dest, nil
}

func (s *Store) RemoveMember(_ context.Context, roomID uuid.UUID, list models.List, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return store.ErrNotFound
	}

	party := partyNames(rs.participants)
	queue := queueNames(rs.queue)

	var found bool
	if list == models.ListParty {
		if i := slices.Index(party, username); i >= 0 {
			party = slices.Delete(party, i, i+1)
			found = true
		}
	} else {
		if i := slices.Index(queue, username); i >= 0 {
			queue = slices.Delete(queue, i, i+1)
			found = true
		}
	}
	if !found {
		return store.ErrNotFound
	}

	party, queue = engine.Normalize(party, queue, rs.room.PartySize)
	rs.applyMembership(party, queue)
	delete(rs.nextLast, username)
	rs.room.OrderVersion++
	return nil
}

func (s *Store) SetNextLast(_ context.Context, roomID uuid.UUID, usernames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return store.ErrNotFound
	}
	for _, u := range usernames {
		rs.nextLast[u] = true
	}
	return nil
}

func (s *Store) ClearNextLast(_ context.Context, roomID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return store.ErrNotFound
	}
	rs.nextLast = make(map[string]bool)
	return nil
}

func (s *Store) ApplyReorder(_ context.Context, roomID uuid.UUID, req resolver.Request) (*models.ReorderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}

	res := resolver.Resolve(resolver.State{
		Version:    rs.room.OrderVersion,
		PartySize:  rs.room.PartySize,
		Party:      partyNames(rs.participants),
		Queue:      queueNames(rs.queue),
		AppliedOps: rs.ops,
	}, req)

	if res.Outcome == models.OutcomeOK {
		rs.applyMembership(res.Party, res.Queue)
		rs.room.OrderVersion = res.Version
		rs.ops[req.ClientOpID] = resolver.AppliedOp{OpHash: res.OpHash, Version: res.Version}
	}

	snap := rs.snapshot()
	return &models.ReorderResult{
		Status:       res.Outcome,
		Version:      res.Version,
		Participants: snap.Participants,
		Queue:        snap.Queue,
		Reason:       res.Reason,
	}, nil
}

func (s *Store) Rotate(_ context.Context, roomID uuid.UUID) (*models.RotationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}

	party := partyNames(rs.participants)
	queue := queueNames(rs.queue)

	var rot *engine.Rotation
	var err error
	if rs.room.IsMonitoring {
		rot, err = engine.RotateNextLast(party, queue, rs.nextLast, rs.room.RotateCount, rs.room.PartySize)
	} else {
		rot, err = engine.RotatePlain(party, queue, rs.room.RotateCount, rs.room.PartySize)
	}
	if err != nil {
		return nil, err
	}

	rs.applyMembership(rot.Party, rot.Queue)
	for _, u := range rot.RemovedReservedParty {
		delete(rs.nextLast, u)
	}
	for _, u := range rot.RemovedReservedQueue {
		delete(rs.nextLast, u)
	}
	rs.room.OrderVersion++

	snap := rs.snapshot()
	return &models.RotationResult{
		Room:                 snap.Room,
		Participants:         snap.Participants,
		Queue:                snap.Queue,
		RemovedNextLastParty: rot.RemovedReservedParty,
		RemovedNextLastQueue: rot.RemovedReservedQueue,
		RotatedRegular:       rot.RotatedOut,
		Promoted:             rot.Promoted,
		PartyShortage:        rot.PartyShortage,
	}, nil
}

func (s *Store) AcquirePollLease(_ context.Context, roomID uuid.UUID, holderID string, ttl time.Duration) (*models.PollLease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}

	now := time.Now()
	if rs.lease != nil && rs.lease.HolderID != holderID && rs.lease.ExpiresAt.After(now) {
		held := *rs.lease
		return &held, store.ErrLeaseHeld
	}
	rs.lease = &models.PollLease{RoomID: roomID, HolderID: holderID, ExpiresAt: now.Add(ttl)}
	lease := *rs.lease
	return &lease, nil
}

func (rs *roomState) applyMembership(party, queue []string) {
	rs.participants, rs.queue = store.Reseat(rs.room.ID, rs.participants, rs.queue, party, queue)
}

func partyNames(rows []models.Participant) []string {
	out := make([]string, len(rows))
	for i, p := range rows {
		out[i] = p.Username
	}
	return out
}

func queueNames(rows []models.QueueEntry) []string {
	out := make([]string, len(rows))
	for i, q := range rows {
		out[i] = q.Username
	}
	return out
}
