package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/resolver"
	"github.com/ytqm/ytqm/internal/store"
)

// ApplyReorder runs the idempotency/conflict resolver against the
// room's committed state with the room row locked. The resolver itself
// is pure; this shell feeds it the locked snapshot and the op record
// for the request's client_op_id, then persists whatever it decides.
func (s *Store) ApplyReorder(ctx context.Context, roomID uuid.UUID, req resolver.Request) (*models.ReorderResult, error) {
	var result *models.ReorderResult
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		snap, err := loadSnapshot(ctx, tx, roomID, true)
		if err != nil {
			return err
		}

		applied := make(map[string]resolver.AppliedOp, 1)
		var prior resolver.AppliedOp
		err = tx.QueryRow(ctx, `
		SELECT op_hash, version FROM room_order_ops
		WHERE room_id=$1 AND client_op_id=$2`,
			roomID, req.ClientOpID,
		).Scan(&prior.OpHash, &prior.Version)
		if err == nil {
			applied[req.ClientOpID] = prior
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		res := resolver.Resolve(resolver.State{
			Version:    snap.Room.OrderVersion,
			PartySize:  snap.Room.PartySize,
			Party:      snap.PartyUsernames(),
			Queue:      snap.QueueUsernames(),
			AppliedOps: applied,
		}, req)

		if res.Outcome == models.OutcomeOK {
			parts, entries := store.Reseat(roomID, snap.Participants, snap.Queue, res.Party, res.Queue)
			if err := saveMembership(ctx, tx, roomID, parts, entries, nextLastSet(snap)); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
			UPDATE rooms SET order_version=$2 WHERE id=$1`, roomID, res.Version); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
			INSERT INTO room_order_ops (room_id, client_op_id, op_hash, version)
			VALUES ($1, $2, $3, $4)`,
				roomID, req.ClientOpID, res.OpHash, res.Version); err != nil {
				return err
			}
		}

		fresh, err := loadSnapshot(ctx, tx, roomID, false)
		if err != nil {
			return err
		}
		result = &models.ReorderResult{
			Status:       res.Outcome,
			Version:      res.Version,
			Participants: fresh.Participants,
			Queue:        fresh.Queue,
			Reason:       res.Reason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
