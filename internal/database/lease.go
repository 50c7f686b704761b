package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/store"
)

// AcquirePollLease claims or renews the room's chat polling lease with
// a single conditional upsert. The insert only wins when no lease row
// exists, the holder already owns it, or the previous lease expired.
func (s *Store) AcquirePollLease(ctx context.Context, roomID uuid.UUID, holderID string, ttl time.Duration) (*models.PollLease, error) {
	lease := &models.PollLease{RoomID: roomID, HolderID: holderID, ExpiresAt: time.Now().Add(ttl)}

	q := `
	INSERT INTO room_poll_leases (room_id, holder_id, expires_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (room_id) DO UPDATE
	SET holder_id=EXCLUDED.holder_id, expires_at=EXCLUDED.expires_at
	WHERE room_poll_leases.holder_id=EXCLUDED.holder_id
	   OR room_poll_leases.expires_at <= now()`

	tag, err := s.pool.Exec(ctx, q, roomID, holderID, lease.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if tag.RowsAffected() > 0 {
		return lease, nil
	}

	held := &models.PollLease{RoomID: roomID}
	err = s.pool.QueryRow(ctx, `
	SELECT holder_id, expires_at FROM room_poll_leases WHERE room_id=$1`,
		roomID,
	).Scan(&held.HolderID, &held.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return held, store.ErrLeaseHeld
}
