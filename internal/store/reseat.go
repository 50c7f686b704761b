package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/ytqm/ytqm/internal/models"
)

// Reseat rewrites the row sets to match the given username orderings.
// Rows whose member stayed in its list keep their identity and join
// time; members that crossed lists get a fresh id stamped now, keeping
// their display name and source. Both lists come back densely
// positioned.
func Reseat(roomID uuid.UUID, prevParts []models.Participant, prevQueue []models.QueueEntry, party, queue []string) ([]models.Participant, []models.QueueEntry) {
	byPartyName := make(map[string]models.Participant, len(prevParts))
	for _, p := range prevParts {
		byPartyName[p.Username] = p
	}
	byQueueName := make(map[string]models.QueueEntry, len(prevQueue))
	for _, q := range prevQueue {
		byQueueName[q.Username] = q
	}

	now := time.Now()

	nextParty := make([]models.Participant, 0, len(party))
	for i, u := range party {
		if p, ok := byPartyName[u]; ok {
			p.Position = i
			nextParty = append(nextParty, p)
			continue
		}
		row := models.Participant{
			ID: uuid.New(), RoomID: roomID, Username: u,
			DisplayName: u, Position: i, Source: models.SourceManual, JoinedAt: now,
		}
		if q, ok := byQueueName[u]; ok {
			row.DisplayName = q.DisplayName
			row.Source = q.Source
		}
		nextParty = append(nextParty, row)
	}

	nextQueue := make([]models.QueueEntry, 0, len(queue))
	for i, u := range queue {
		if q, ok := byQueueName[u]; ok {
			q.Position = i
			nextQueue = append(nextQueue, q)
			continue
		}
		row := models.QueueEntry{
			ID: uuid.New(), RoomID: roomID, Username: u,
			DisplayName: u, Position: i, Source: models.SourceManual, RegisteredAt: now,
		}
		if p, ok := byPartyName[u]; ok {
			row.DisplayName = p.DisplayName
			row.Source = p.Source
		}
		nextQueue = append(nextQueue, row)
	}

	return nextParty, nextQueue
}
