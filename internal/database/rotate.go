package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ytqm/ytqm/internal/engine"
	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/store"
)

// Rotate commits one rotation batch under the room lock. While chat
// monitoring is active the next-last-aware variant runs and the
// reservations it consumed are cleared; otherwise the plain variant.
// order_version is bumped once for the whole batch.
func (s *Store) Rotate(ctx context.Context, roomID uuid.UUID) (*models.RotationResult, error) {
	var result *models.RotationResult
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		snap, err := loadSnapshot(ctx, tx, roomID, true)
		if err != nil {
			return err
		}

		party := snap.PartyUsernames()
		queue := snap.QueueUsernames()
		reserved := nextLastSet(snap)

		var rot *engine.Rotation
		if snap.Room.IsMonitoring {
			rot, err = engine.RotateNextLast(party, queue, reserved, snap.Room.RotateCount, snap.Room.PartySize)
		} else {
			rot, err = engine.RotatePlain(party, queue, snap.Room.RotateCount, snap.Room.PartySize)
		}
		if err != nil {
			return err
		}

		for _, u := range rot.RemovedReservedParty {
			delete(reserved, u)
		}
		for _, u := range rot.RemovedReservedQueue {
			delete(reserved, u)
		}

		parts, entries := store.Reseat(roomID, snap.Participants, snap.Queue, rot.Party, rot.Queue)
		if err := saveMembership(ctx, tx, roomID, parts, entries, reserved); err != nil {
			return err
		}
		if _, err := bumpVersion(ctx, tx, roomID); err != nil {
			return err
		}

		fresh, err := loadSnapshot(ctx, tx, roomID, false)
		if err != nil {
			return err
		}
		result = &models.RotationResult{
			Room:                 fresh.Room,
			Participants:         fresh.Participants,
			Queue:                fresh.Queue,
			RemovedNextLastParty: rot.RemovedReservedParty,
			RemovedNextLastQueue: rot.RemovedReservedQueue,
			RotatedRegular:       rot.RotatedOut,
			Promoted:             rot.Promoted,
			PartyShortage:        rot.PartyShortage,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
