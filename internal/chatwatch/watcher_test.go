package chatwatch

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytqm/ytqm/internal/memstore"
	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/store"
)

type fakeSource struct {
	chatID string
	pages  []Page
	err    error
	calls  int
}

func (f *fakeSource) ResolveLiveChatID(_ context.Context, _ string) (string, error) {
	if f.chatID == "" {
		return "", ErrChatEnded
	}
	return f.chatID, nil
}

func (f *fakeSource) Messages(_ context.Context, _, _ string) (*Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.pages) {
		return &Page{}, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return &page, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func watchRoom(t *testing.T, s *memstore.Store) *models.Room {
	t.Helper()
	room := &models.Room{
		Name:            "stream",
		Keyword:         "!join",
		NextLastKeyword: "!last",
		PartySize:       2,
		RotateCount:     1,
		VideoID:         "vid123",
	}
	require.NoError(t, s.CreateRoom(context.Background(), room))
	require.NoError(t, s.SetMonitoring(context.Background(), room.ID, true))
	return room
}

func TestPollAddsKeywordMatches(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	room := watchRoom(t, s)

	src := &fakeSource{
		chatID: "chat1",
		pages: []Page{{
			Messages: []Message{
				{AuthorName: "alice", Text: "!join"},
				{AuthorName: "bob", Text: "hello there"},
				{AuthorName: "carol", Text: " !JOIN "},
				{AuthorName: "alice", Text: "!join"},
			},
			NextPageToken: "page2",
			PollInterval:  1500 * time.Millisecond,
		}},
	}

	w := New(s, src, quietLogger(), "poller-1")
	report, err := w.Poll(ctx, room.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "carol"}, report.Added, "duplicates and non-matches skipped")
	assert.Equal(t, 1500*time.Millisecond, report.NextPoll)
	assert.False(t, report.Stopped)

	snap, _ := s.RoomSnapshot(ctx, room.ID)
	assert.Equal(t, []string{"alice", "carol"}, snap.PartyUsernames())
	assert.Equal(t, "chat1", snap.Room.LiveChatID)
	assert.Equal(t, "page2", snap.Room.NextPageToken)
}

func TestPollNextLastKeyword(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	room := watchRoom(t, s)

	_, err := s.AddEntry(ctx, room.ID, "alice", "", models.SourceYouTube)
	require.NoError(t, err)

	src := &fakeSource{
		chatID: "chat1",
		pages: []Page{{
			Messages: []Message{{AuthorName: "alice", Text: "!last"}},
		}},
	}

	w := New(s, src, quietLogger(), "poller-1")
	report, err := w.Poll(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, report.Reserved)

	snap, _ := s.RoomSnapshot(ctx, room.ID)
	require.Len(t, snap.Participants, 1)
	assert.True(t, snap.Participants[0].IsNextLast)
}

func TestPollChatEndedStopsMonitoring(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	room := watchRoom(t, s)

	src := &fakeSource{chatID: "chat1", err: ErrChatEnded}
	w := New(s, src, quietLogger(), "poller-1")

	report, err := w.Poll(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, report.Stopped)

	got, _ := s.Room(ctx, room.ID)
	assert.False(t, got.IsMonitoring)

	_, err = w.Poll(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotMonitoring)
}

func TestPollLeaseContention(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	room := watchRoom(t, s)

	_, err := s.AcquirePollLease(ctx, room.ID, "other-poller", time.Minute)
	require.NoError(t, err)

	src := &fakeSource{chatID: "chat1"}
	w := New(s, src, quietLogger(), "poller-1")

	_, err = w.Poll(ctx, room.ID)
	require.ErrorIs(t, err, store.ErrLeaseHeld)

	var held *LeaseHeldError
	require.True(t, errors.As(err, &held))
	assert.Greater(t, held.RetryAfter, time.Duration(0))
}

func TestPollResumesFromCursor(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	room := watchRoom(t, s)
	require.NoError(t, s.SaveChatCursor(ctx, room.ID, "chat1", "page5"))

	src := &fakeSource{chatID: "unused", pages: []Page{{NextPageToken: "page6"}}}
	w := New(s, src, quietLogger(), "poller-1")

	_, err := w.Poll(ctx, room.ID)
	require.NoError(t, err)

	got, _ := s.Room(ctx, room.ID)
	assert.Equal(t, "chat1", got.LiveChatID, "existing chat id kept without re-resolving")
	assert.Equal(t, "page6", got.NextPageToken)
}
