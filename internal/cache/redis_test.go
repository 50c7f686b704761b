package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytqm/ytqm/internal/models"
)

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Room: &models.Room{Name: "test", PartySize: 2, OrderVersion: 7},
		Participants: []models.Participant{
			{Username: "a", Position: 0},
			{Username: "b", Position: 1},
		},
	}
}

func TestOverlayGetMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	o := NewOverlay(rdb, time.Second)

	mock.ExpectGet("ytqm:overlay:tok").RedisNil()

	snap, err := o.Get(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverlaySetThenGet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	o := NewOverlay(rdb, time.Second)

	snap := testSnapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectSet("ytqm:overlay:tok", data, time.Second).SetVal("OK")
	require.NoError(t, o.Set(context.Background(), "tok", snap))

	mock.ExpectGet("ytqm:overlay:tok").SetVal(string(data))
	got, err := o.Get(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.Room.OrderVersion)
	assert.Equal(t, []string{"a", "b"}, got.PartyUsernames())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverlayInvalidate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	o := NewOverlay(rdb, time.Second)

	mock.ExpectDel("ytqm:overlay:tok").SetVal(1)
	require.NoError(t, o.Invalidate(context.Background(), "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilOverlayPassThrough(t *testing.T) {
	var o *Overlay
	snap, err := o.Get(context.Background(), "tok")
	assert.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, o.Set(context.Background(), "tok", testSnapshot()))
	assert.NoError(t, o.Invalidate(context.Background(), "tok"))
}
