package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ytqm/ytqm/internal/engine"
	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/store"
)

const roomColumns = `id, owner_id, name, keyword, next_last_keyword,
       party_size, rotate_count, is_monitoring, overlay_show_queue,
       youtube_video_id, live_chat_id, next_page_token,
       order_version, created_at`

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Name, &r.Keyword, &r.NextLastKeyword,
		&r.PartySize, &r.RotateCount, &r.IsMonitoring, &r.OverlayShowQueue,
		&r.VideoID, &r.LiveChatID, &r.NextPageToken,
		&r.OrderVersion, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}

	q := `INSERT INTO rooms (id, owner_id, name, keyword, next_last_keyword,
	                         party_size, rotate_count, overlay_show_queue, youtube_video_id)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	      RETURNING created_at`

	var owner any
	if room.OwnerID != uuid.Nil {
		owner = room.OwnerID
	}
	err := s.pool.QueryRow(ctx, q,
		room.ID, owner, room.Name, room.Keyword, room.NextLastKeyword,
		room.PartySize, room.RotateCount, room.OverlayShowQueue, room.VideoID,
	).Scan(&room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}

func (s *Store) Room(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE id=$1`
	return scanRoom(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) RoomSnapshot(ctx context.Context, id uuid.UUID) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		snap, err = loadSnapshot(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// loadSnapshot reads the room and both membership lists in list order.
// With forUpdate the room row is locked for the rest of the
// transaction, which serializes all structural mutations per room.
func loadSnapshot(ctx context.Context, tx pgx.Tx, id uuid.UUID, forUpdate bool) (*models.Snapshot, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE id=$1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	room, err := scanRoom(tx.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{Room: room}

	rows, err := tx.Query(ctx, `
	SELECT id, username, display_name, position, source, is_next_last, joined_at
	FROM participants
	WHERE room_id=$1
	ORDER BY position ASC, joined_at ASC`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		p := models.Participant{RoomID: id}
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Position, &p.Source, &p.IsNextLast, &p.JoinedAt); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Participants = append(snap.Participants, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `
	SELECT id, username, display_name, position, source, is_next_last, registered_at
	FROM waiting_queue
	WHERE room_id=$1
	ORDER BY position ASC, registered_at ASC`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		e := models.QueueEntry{RoomID: id}
		if err := rows.Scan(&e.ID, &e.Username, &e.DisplayName, &e.Position, &e.Source, &e.IsNextLast, &e.RegisteredAt); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Queue = append(snap.Queue, e)
	}
	rows.Close()
	return snap, rows.Err()
}

// saveMembership replaces both membership lists with the reseated rows.
// Same-row identities survive because the rows are re-inserted with
// their original ids and timestamps.
func saveMembership(ctx context.Context, tx pgx.Tx, roomID uuid.UUID, parts []models.Participant, queue []models.QueueEntry, nextLast map[string]bool) error {
	if _, err := tx.Exec(ctx, `DELETE FROM participants WHERE room_id=$1`, roomID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM waiting_queue WHERE room_id=$1`, roomID); err != nil {
		return err
	}
	for _, p := range parts {
		_, err := tx.Exec(ctx, `
		INSERT INTO participants (id, room_id, username, display_name, position, source, is_next_last, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, roomID, p.Username, p.DisplayName, p.Position, p.Source, nextLast[p.Username], p.JoinedAt)
		if err != nil {
			return err
		}
	}
	for _, e := range queue {
		_, err := tx.Exec(ctx, `
		INSERT INTO waiting_queue (id, room_id, username, display_name, position, source, is_next_last, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, roomID, e.Username, e.DisplayName, e.Position, e.Source, nextLast[e.Username], e.RegisteredAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func nextLastSet(snap *models.Snapshot) map[string]bool {
	set := make(map[string]bool)
	for _, p := range snap.Participants {
		if p.IsNextLast {
			set[p.Username] = true
		}
	}
	for _, e := range snap.Queue {
		if e.IsNextLast {
			set[e.Username] = true
		}
	}
	return set
}

func bumpVersion(ctx context.Context, tx pgx.Tx, roomID uuid.UUID) (int64, error) {
	var v int64
	err := tx.QueryRow(ctx, `
	UPDATE rooms SET order_version = order_version + 1
	WHERE id=$1
	RETURNING order_version`, roomID).Scan(&v)
	return v, err
}

func (s *Store) SetMonitoring(ctx context.Context, id uuid.UUID, on bool) error {
	// stopping monitoring also discards the chat cursor
	q := `UPDATE rooms SET is_monitoring=FALSE, live_chat_id='', next_page_token='' WHERE id=$1`
	if on {
		q = `UPDATE rooms SET is_monitoring=TRUE WHERE id=$1`
	}
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveChatCursor(ctx context.Context, id uuid.UUID, liveChatID, pageToken string) error {
	tag, err := s.pool.Exec(ctx, `
	UPDATE rooms SET live_chat_id=$2, next_page_token=$3 WHERE id=$1`,
		id, liveChatID, pageToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddEntry(ctx context.Context, roomID uuid.UUID, username, displayName, source string) (models.List, error) {
	username = strings.TrimSpace(username)
	if displayName == "" {
		displayName = username
	}

	var dest models.List
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		snap, err := loadSnapshot(ctx, tx, roomID, true)
		if err != nil {
			return err
		}

		if len(snap.Participants) < snap.Room.PartySize {
			dest = models.ListParty
			_, err = tx.Exec(ctx, `
			INSERT INTO participants (id, room_id, username, display_name, position, source)
			VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New(), roomID, username, displayName, len(snap.Participants), source)
		} else {
			dest = models.ListQueue
			_, err = tx.Exec(ctx, `
			INSERT INTO waiting_queue (id, room_id, username, display_name, position, source)
			VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New(), roomID, username, displayName, len(snap.Queue), source)
		}
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return store.ErrDuplicateUsername
			}
			return err
		}

		_, err = bumpVersion(ctx, tx, roomID)
		return err
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

func (s *Store) RemoveMember(ctx context.Context, roomID uuid.UUID, list models.List, username string) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		snap, err := loadSnapshot(ctx, tx, roomID, true)
		if err != nil {
			return err
		}

		party := snap.PartyUsernames()
		queue := snap.QueueUsernames()
		found := false
		if list == models.ListParty {
			if i := indexOf(party, username); i >= 0 {
				party = append(party[:i], party[i+1:]...)
				found = true
			}
		} else {
			if i := indexOf(queue, username); i >= 0 {
				queue = append(queue[:i], queue[i+1:]...)
				found = true
			}
		}
		if !found {
			return store.ErrNotFound
		}

		party, queue = engine.Normalize(party, queue, snap.Room.PartySize)
		parts, entries := store.Reseat(roomID, snap.Participants, snap.Queue, party, queue)

		reserved := nextLastSet(snap)
		delete(reserved, username)
		if err := saveMembership(ctx, tx, roomID, parts, entries, reserved); err != nil {
			return err
		}
		_, err = bumpVersion(ctx, tx, roomID)
		return err
	})
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}

func (s *Store) SetNextLast(ctx context.Context, roomID uuid.UUID, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := scanRoom(tx.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1 FOR UPDATE`, roomID)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
		UPDATE participants SET is_next_last=TRUE
		WHERE room_id=$1 AND username=ANY($2)`, roomID, usernames); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
		UPDATE waiting_queue SET is_next_last=TRUE
		WHERE room_id=$1 AND username=ANY($2)`, roomID, usernames)
		return err
	})
}

func (s *Store) ClearNextLast(ctx context.Context, roomID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
		UPDATE participants SET is_next_last=FALSE WHERE room_id=$1`, roomID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
		UPDATE waiting_queue SET is_next_last=FALSE WHERE room_id=$1`, roomID)
		return err
	})
}
