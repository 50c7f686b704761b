package engine

import "slices"

// Rotation computes one rotation batch over username sequences. The
// transactional store applies the result and bumps order_version
// exactly once for the whole batch.
type Rotation struct {
	Party []string
	Queue []string

	RemovedReservedParty []string
	RemovedReservedQueue []string
	RotatedOut           []string
	Promoted             []string
	PartyShortage        int
}

// RotatePlain removes the oldest min(rotateCount, len(queue)) party
// members, promotes queue-head entries into the freed capacity, and
// appends the removed members to the queue tail in removal order.
// Promotions are capped so the party never exceeds partySize even when
// rotateCount is larger than the party. Rejects when the queue is
// empty.
func RotatePlain(party, queue []string, rotateCount, partySize int) (*Rotation, error) {
	if len(queue) == 0 {
		return nil, ErrNothingToRotate
	}

	outCount := min(rotateCount, len(queue), len(party))
	promoteCount := min(rotateCount, len(queue), partySize-len(party)+outCount)

	rotatedOut := slices.Clone(party[:outCount])
	promoted := slices.Clone(queue[:promoteCount])

	nextParty := append(slices.Clone(party[outCount:]), promoted...)
	nextQueue := append(slices.Clone(queue[promoteCount:]), rotatedOut...)

	return &Rotation{
		Party:         nextParty,
		Queue:         nextQueue,
		RotatedOut:    rotatedOut,
		Promoted:      promoted,
		PartyShortage: max(0, partySize-len(nextParty)),
	}, nil
}

// RotateNextLast is the next-last-aware mode used while chat monitoring
// is active. Reserved members leave outright and are not counted
// against rotateCount: the regular rotation still moves up to
// rotateCount of the remaining party members to the queue tail, capped
// by the number of waiting entries. The party is then refilled from
// the queue head up to capacity, driven purely by the resulting
// deficit.
func RotateNextLast(party, queue []string, reserved map[string]bool, rotateCount, partySize int) (*Rotation, error) {
	var removedParty, removedQueue []string
	var nextParty, nextQueue []string

	for _, u := range party {
		if reserved[u] {
			removedParty = append(removedParty, u)
		} else {
			nextParty = append(nextParty, u)
		}
	}
	for _, u := range queue {
		if reserved[u] {
			removedQueue = append(removedQueue, u)
		} else {
			nextQueue = append(nextQueue, u)
		}
	}

	if len(removedParty) == 0 && len(removedQueue) == 0 && len(queue) == 0 {
		return nil, ErrNothingToRotate
	}

	regularOut := min(rotateCount, len(nextParty), len(nextQueue))

	rotatedOut := slices.Clone(nextParty[:regularOut])
	nextParty = slices.Clone(nextParty[regularOut:])
	nextQueue = append(nextQueue, rotatedOut...)

	var promoted []string
	for len(nextParty) < partySize && len(nextQueue) > 0 {
		head := nextQueue[0]
		nextQueue = nextQueue[1:]
		nextParty = append(nextParty, head)
		promoted = append(promoted, head)
	}

	return &Rotation{
		Party:                nextParty,
		Queue:                nextQueue,
		RemovedReservedParty: removedParty,
		RemovedReservedQueue: removedQueue,
		RotatedOut:           rotatedOut,
		Promoted:             promoted,
		PartyShortage:        max(0, partySize-len(nextParty)),
	}, nil
}
