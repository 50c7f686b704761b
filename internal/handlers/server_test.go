package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytqm/ytqm/internal/auth"
	"github.com/ytqm/ytqm/internal/chatwatch"
	"github.com/ytqm/ytqm/internal/memstore"
	"github.com/ytqm/ytqm/internal/models"
)

func testServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	tokens, err := auth.NewTokens(time.Hour)
	require.NoError(t, err)
	st := memstore.New()
	return NewServer(log, st, tokens, nil, nil), st
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func createRoom(t *testing.T, mux *http.ServeMux, partySize, rotateCount int) models.Room {
	t.Helper()
	w := doJSON(t, mux, "POST", "/rooms", "", map[string]any{
		"name":         "test room",
		"keyword":      "!join",
		"party_size":   partySize,
		"rotate_count": rotateCount,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Room](t, w)
}

func addMembers(t *testing.T, mux *http.ServeMux, roomID uuid.UUID, names ...string) {
	t.Helper()
	for _, n := range names {
		w := doJSON(t, mux, "POST", fmt.Sprintf("/rooms/%s/entries", roomID), "", map[string]any{"username": n})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestUserRegisterAndLogin(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()

	w := doJSON(t, mux, "POST", "/auth/register", "", map[string]any{
		"email": "owner@example.com", "password": "hunter2", "username": "owner",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.User](t, w)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.NotContains(t, w.Body.String(), "argon2id", "hash never serialized")

	w = doJSON(t, mux, "POST", "/auth/register", "", map[string]any{
		"email": "owner@example.com", "password": "other",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, mux, "POST", "/auth/login", "", map[string]any{
		"email": "owner@example.com", "password": "hunter2",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[loginResponse](t, w)
	assert.NotEmpty(t, login.Token)

	w = doJSON(t, mux, "POST", "/auth/login", "", map[string]any{
		"email": "owner@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoomLifecycle(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()

	room := createRoom(t, mux, 2, 1)
	addMembers(t, mux, room.ID, "a", "b", "c")

	// duplicate is a conflict
	w := doJSON(t, mux, "POST", fmt.Sprintf("/rooms/%s/entries", room.ID), "", map[string]any{"username": "a"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, mux, "GET", fmt.Sprintf("/rooms/%s", room.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[models.Snapshot](t, w)
	assert.Equal(t, []string{"a", "b"}, snap.PartyUsernames())
	assert.Equal(t, []string{"c"}, snap.QueueUsernames())
	assert.Equal(t, int64(3), snap.Room.OrderVersion)

	w = doJSON(t, mux, "GET", "/rooms/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveParticipantPromotes(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	room := createRoom(t, mux, 2, 1)
	addMembers(t, mux, room.ID, "a", "b", "c")

	w := doJSON(t, mux, "DELETE", fmt.Sprintf("/rooms/%s/participants/a", room.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[models.Snapshot](t, w)
	assert.Equal(t, []string{"b", "c"}, snap.PartyUsernames())
	assert.Empty(t, snap.QueueUsernames())

	w = doJSON(t, mux, "DELETE", fmt.Sprintf("/rooms/%s/participants/ghost", room.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReorderOutcomeStatusCodes(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	room := createRoom(t, mux, 2, 1)
	addMembers(t, mux, room.ID, "a", "b", "c", "d")

	reorderPath := fmt.Sprintf("/rooms/%s/reorder", room.ID)
	op := map[string]any{
		"source": map[string]any{"list": "party", "id": "a"},
		"dest":   map[string]any{"list": "queue", "overId": "d", "edge": "before"},
		"mode":   "insert",
	}

	// fresh version commits
	opID := uuid.NewString()
	w := doJSON(t, mux, "POST", reorderPath, "", map[string]any{
		"expected_version": 4, "client_op_id": opID, "op": op,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[models.ReorderResult](t, w)
	assert.Equal(t, models.OutcomeOK, res.Status)
	assert.Equal(t, int64(5), res.Version)

	// resent duplicate after resync replays idempotently
	w = doJSON(t, mux, "POST", reorderPath, "", map[string]any{
		"expected_version": 5, "client_op_id": opID, "op": op,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OutcomeReplay, decode[models.ReorderResult](t, w).Status)

	// stale version conflicts and returns the authoritative state
	w = doJSON(t, mux, "POST", reorderPath, "", map[string]any{
		"expected_version": 4, "client_op_id": uuid.NewString(), "op": op,
	})
	require.Equal(t, http.StatusConflict, w.Code)
	res = decode[models.ReorderResult](t, w)
	assert.Equal(t, models.OutcomeVersionConflict, res.Status)
	assert.Equal(t, int64(5), res.Version)
	assert.NotEmpty(t, res.Participants)

	// same op id, different but well-formed payload: a now sits in the
	// queue, so this op validates cleanly and fails only the hash check
	w = doJSON(t, mux, "POST", reorderPath, "", map[string]any{
		"expected_version": 5, "client_op_id": opID, "op": map[string]any{
			"source": map[string]any{"list": "queue", "id": "a"},
			"dest":   map[string]any{"list": "queue", "overId": "d", "edge": "after"},
			"mode":   "insert",
		},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.OutcomeOpIDMismatch, decode[models.ReorderResult](t, w).Status)

	// malformed op
	w = doJSON(t, mux, "POST", reorderPath, "", map[string]any{
		"expected_version": 5, "client_op_id": uuid.NewString(),
		"op": map[string]any{"source": map[string]any{"list": "nowhere", "id": "a"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.OutcomeReject, decode[models.ReorderResult](t, w).Status)
}

func TestRotateHandler(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	room := createRoom(t, mux, 2, 1)
	addMembers(t, mux, room.ID, "a", "b", "c")

	w := doJSON(t, mux, "POST", fmt.Sprintf("/rooms/%s/rotate", room.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[models.RotationResult](t, w)
	assert.Equal(t, []string{"a"}, res.RotatedRegular)
	assert.Equal(t, []string{"c"}, res.Promoted)

	// drain the queue, then rotation has nothing to work with
	doJSON(t, mux, "DELETE", fmt.Sprintf("/rooms/%s/queue/a", room.ID), "", nil)
	w = doJSON(t, mux, "POST", fmt.Sprintf("/rooms/%s/rotate", room.ID), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOwnedRoomRequiresToken(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()

	w := doJSON(t, mux, "POST", "/auth/register", "", map[string]any{
		"email": "owner@example.com", "password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, mux, "POST", "/auth/login", "", map[string]any{
		"email": "owner@example.com", "password": "hunter2",
	})
	token := decode[loginResponse](t, w).Token

	w = doJSON(t, mux, "POST", "/rooms", token, map[string]any{
		"name": "owned", "party_size": 2, "rotate_count": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	room := decode[models.Room](t, w)

	entries := fmt.Sprintf("/rooms/%s/entries", room.ID)
	w = doJSON(t, mux, "POST", entries, "", map[string]any{"username": "a"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, mux, "POST", entries, token, map[string]any{"username": "a"})
	assert.Equal(t, http.StatusCreated, w.Code)

	// reads stay open
	w = doJSON(t, mux, "GET", fmt.Sprintf("/rooms/%s", room.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOverlayHandler(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	room := createRoom(t, mux, 2, 1)
	addMembers(t, mux, room.ID, "a", "b", "c")

	w := doJSON(t, mux, "GET", fmt.Sprintf("/overlay/%s", room.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[overlayView](t, w)
	assert.Equal(t, "test room", view.RoomName)
	assert.Len(t, view.Participants, 2)
	assert.Len(t, view.Queue, 1)

	w = doJSON(t, mux, "GET", "/overlay/not-a-token", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOverlayHidesQueueWhenConfigured(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()

	w := doJSON(t, mux, "POST", "/rooms", "", map[string]any{
		"name": "hidden", "party_size": 1, "rotate_count": 1,
		"overlay_show_queue": false,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	room := decode[models.Room](t, w)
	addMembers(t, mux, room.ID, "a", "b")

	w = doJSON(t, mux, "GET", fmt.Sprintf("/overlay/%s", room.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[overlayView](t, w)
	assert.Len(t, view.Participants, 1)
	assert.Empty(t, view.Queue)
}

func TestPollWithoutWatcher(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	room := createRoom(t, mux, 2, 1)

	w := doJSON(t, mux, "GET", fmt.Sprintf("/rooms/%s/poll", room.ID), "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no watcher configured")
}

type staticSource struct {
	page chatwatch.Page
}

func (s staticSource) ResolveLiveChatID(context.Context, string) (string, error) {
	return "chat1", nil
}

func (s staticSource) Messages(context.Context, string, string) (*chatwatch.Page, error) {
	p := s.page
	return &p, nil
}

func TestPollHandler(t *testing.T) {
	srv, st := testServer(t)
	src := staticSource{page: chatwatch.Page{
		Messages:     []chatwatch.Message{{AuthorName: "alice", Text: "!join"}},
		PollInterval: 2 * time.Second,
	}}
	srv.Watcher = chatwatch.New(st, src, srv.Log, "handler-poller")
	mux := srv.Routes()

	room := createRoom(t, mux, 2, 1)
	path := fmt.Sprintf("/rooms/%s/poll", room.ID)

	// monitoring off
	w := doJSON(t, mux, "GET", path, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, st.SetMonitoring(t.Context(), room.ID, true))
	w = doJSON(t, mux, "GET", path, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[chatwatch.Report](t, w)
	assert.Equal(t, []string{"alice"}, report.Added)
	assert.Equal(t, "2000", w.Header().Get("X-Next-Poll-Ms"))

	// a rival server still sees the first watcher's live lease
	rival := NewServer(srv.Log, st, srv.Tokens, nil, chatwatch.New(st, src, srv.Log, "rival-poller"))
	w = doJSON(t, rival.Routes(), "GET", path, "", nil)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Contains(t, body, "retry_after_ms")
}
