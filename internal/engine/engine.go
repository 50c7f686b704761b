// Package engine implements the pure ordering core shared by the
// server-side resolver and the optimistic client reconciler. Both
// sides call the same Apply so their views can never diverge.
package engine

import (
	"slices"

	"github.com/ytqm/ytqm/internal/models"
)

// Apply computes the desired party and queue membership after one
// reorder operation. Inputs are ordered username sequences; the result
// is always written into fresh slices, so on error the caller's state
// is untouched.
func Apply(party, queue []string, partySize int, op models.ReorderOp) ([]string, []string, error) {
	op = op.Normalized()

	nextParty := slices.Clone(party)
	nextQueue := slices.Clone(queue)

	sourceID := op.Source.ID
	if sourceID == "" {
		return nil, nil, ErrUnknownSourceID
	}

	if op.Source.List == op.Dest.List && op.Mode == models.ModeSwap {
		return nil, nil, ErrSameListSwap
	}

	// Dropping an item onto itself is a no-op.
	if op.Source.List == op.Dest.List && op.Dest.OverID != nil && *op.Dest.OverID == sourceID {
		return nextParty, nextQueue, nil
	}

	sourcePartyIdx := slices.Index(nextParty, sourceID)
	sourceQueueIdx := slices.Index(nextQueue, sourceID)

	if op.Source.List == models.ListParty && sourcePartyIdx == -1 {
		return nil, nil, ErrUnknownSourceID
	}
	if op.Source.List == models.ListQueue && sourceQueueIdx == -1 {
		return nil, nil, ErrUnknownSourceID
	}

	if op.Mode == models.ModeSwap {
		if op.Source.List != models.ListQueue || op.Dest.List != models.ListParty || op.Dest.OverID == nil {
			return nil, nil, ErrInvalidSwapShape
		}

		overIdx := slices.Index(nextParty, *op.Dest.OverID)
		if overIdx == -1 {
			return nil, nil, ErrUnknownOverID
		}

		// True position swap: the queue member takes the party slot and
		// the displaced party member takes the vacated queue slot.
		nextParty[overIdx] = sourceID
		nextQueue[sourceQueueIdx] = *op.Dest.OverID
		return nextParty, nextQueue, nil
	}

	// insert: remove the source from its current list first.
	if op.Source.List == models.ListParty {
		nextParty = slices.Delete(nextParty, sourcePartyIdx, sourcePartyIdx+1)
	} else {
		nextQueue = slices.Delete(nextQueue, sourceQueueIdx, sourceQueueIdx+1)
	}

	if op.Dest.OverID == nil {
		if op.Dest.Edge != models.EdgeEmpty {
			return nil, nil, ErrInvalidDropTarget
		}
		if op.Dest.List == models.ListParty {
			nextParty = append(nextParty, sourceID)
		} else {
			nextQueue = append(nextQueue, sourceID)
		}
		if op.Source.List != op.Dest.List {
			nextParty, nextQueue = Normalize(nextParty, nextQueue, partySize)
		}
		return nextParty, nextQueue, nil
	}

	if op.Dest.Edge == models.EdgeEmpty {
		return nil, nil, ErrInvalidDropTarget
	}

	overID := *op.Dest.OverID
	if op.Dest.List == models.ListParty {
		overIdx := slices.Index(nextParty, overID)
		if overIdx == -1 {
			return nil, nil, ErrUnknownOverID
		}
		nextParty = slices.Insert(nextParty, insertIndex(overIdx, op.Dest.Edge), sourceID)
	} else {
		overIdx := slices.Index(nextQueue, overID)
		if overIdx == -1 {
			return nil, nil, ErrUnknownOverID
		}
		nextQueue = slices.Insert(nextQueue, insertIndex(overIdx, op.Dest.Edge), sourceID)
	}

	if op.Source.List != op.Dest.List {
		nextParty, nextQueue = Normalize(nextParty, nextQueue, partySize)
	}
	return nextParty, nextQueue, nil
}

func insertIndex(overIdx int, edge models.Edge) int {
	if edge == models.EdgeBefore {
		return overIdx
	}
	return overIdx + 1
}

// Normalize restores the capacity invariant after a cross-list move:
// while the party exceeds capacity its oldest (front) member moves to
// the queue tail, then while the party is under capacity the queue head
// is promoted to the party tail. Demote runs before promote so relative
// order among survivors is preserved.
func Normalize(party, queue []string, partySize int) ([]string, []string) {
	party = slices.Clone(party)
	queue = slices.Clone(queue)

	for len(party) > partySize {
		demoted := party[0]
		party = party[1:]
		queue = append(queue, demoted)
	}
	for len(party) < partySize && len(queue) > 0 {
		promoted := queue[0]
		queue = queue[1:]
		party = append(party, promoted)
	}
	return party, queue
}
