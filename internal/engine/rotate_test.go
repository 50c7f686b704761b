package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatePlain(t *testing.T) {
	// rotate_count=2, party=[a,b,c] cap 3, queue=[d,e]: the two oldest
	// leave, the two queue heads come in, order preserved among
	// survivors.
	rot, err := RotatePlain([]string{"a", "b", "c"}, []string{"d", "e"}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "e"}, rot.Party)
	assert.Equal(t, []string{"a", "b"}, rot.Queue)
	assert.Equal(t, []string{"a", "b"}, rot.RotatedOut)
	assert.Equal(t, []string{"d", "e"}, rot.Promoted)
	assert.Zero(t, rot.PartyShortage)
}

func TestRotatePlainShortQueue(t *testing.T) {
	rot, err := RotatePlain([]string{"a", "b", "c"}, []string{"d"}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, rot.Party)
	assert.Equal(t, []string{"a"}, rot.Queue)
}

func TestRotatePlainEmptyQueueRejected(t *testing.T) {
	_, err := RotatePlain([]string{"a", "b"}, nil, 1, 2)
	assert.ErrorIs(t, err, ErrNothingToRotate)
}

func TestRotatePlainCountExceedingPartyKeepsCapacity(t *testing.T) {
	// rotate_count larger than the party must not overfill it: the
	// whole party rotates out and exactly partySize come in.
	rot, err := RotatePlain([]string{"a", "b", "c"}, []string{"d", "e", "f", "g"}, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e", "f"}, rot.Party)
	assert.Equal(t, []string{"g", "a", "b", "c"}, rot.Queue)
	assert.Equal(t, []string{"a", "b", "c"}, rot.RotatedOut)
	assert.Equal(t, []string{"d", "e", "f"}, rot.Promoted)
	assert.LessOrEqual(t, len(rot.Party), 3)
}

func TestRotateNextLastReservationNotCounted(t *testing.T) {
	// b flagged next-last, rotate_count=1: b leaves as a reservation,
	// the regular rotation still removes one more (a), and the queue
	// head fills both vacancies.
	rot, err := RotateNextLast(
		[]string{"a", "b", "c"},
		[]string{"d", "e"},
		map[string]bool{"b": true},
		1, 3,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, rot.RemovedReservedParty)
	assert.Equal(t, []string{"a"}, rot.RotatedOut)
	assert.Equal(t, []string{"d", "e"}, rot.Promoted)
	assert.Equal(t, []string{"c", "d", "e"}, rot.Party)
	assert.Equal(t, []string{"a"}, rot.Queue)
	assert.Zero(t, rot.PartyShortage)
}

func TestRotateNextLastRegularCountUnaffectedByReservations(t *testing.T) {
	// b leaves as a reservation, and the regular rotation still moves
	// the full rotate_count=2 of the remaining members.
	rot, err := RotateNextLast(
		[]string{"a", "b", "c"},
		[]string{"d", "e", "f"},
		map[string]bool{"b": true},
		2, 3,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, rot.RemovedReservedParty)
	assert.Equal(t, []string{"a", "c"}, rot.RotatedOut)
	assert.Equal(t, []string{"d", "e", "f"}, rot.Promoted)
	assert.Equal(t, []string{"d", "e", "f"}, rot.Party)
	assert.Equal(t, []string{"a", "c"}, rot.Queue)
	assert.Zero(t, rot.PartyShortage)
}

func TestRotateNextLastRegularRotationCappedByQueue(t *testing.T) {
	// only one member is waiting, so only one regular rotates out
	rot, err := RotateNextLast(
		[]string{"a", "b", "c"},
		[]string{"d"},
		map[string]bool{},
		2, 3,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rot.RotatedOut)
	assert.Equal(t, []string{"d"}, rot.Promoted)
	assert.Equal(t, []string{"b", "c", "d"}, rot.Party)
	assert.Equal(t, []string{"a"}, rot.Queue)
}

func TestRotateNextLastReservedQueueMemberLeaves(t *testing.T) {
	rot, err := RotateNextLast(
		[]string{"a", "b"},
		[]string{"c", "d"},
		map[string]bool{"c": true},
		1, 2,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, rot.RemovedReservedQueue)
	assert.Equal(t, []string{"a"}, rot.RotatedOut)
	assert.Equal(t, []string{"d"}, rot.Promoted)
	assert.Equal(t, []string{"b", "d"}, rot.Party)
	assert.Equal(t, []string{"a"}, rot.Queue)
}

func TestRotateNextLastNothingToDo(t *testing.T) {
	_, err := RotateNextLast([]string{"a"}, nil, map[string]bool{}, 1, 2)
	assert.ErrorIs(t, err, ErrNothingToRotate)
}

func TestRotateNextLastOnlyReservations(t *testing.T) {
	// empty queue is fine as long as a reservation is being cleared
	rot, err := RotateNextLast(
		[]string{"a", "b"},
		nil,
		map[string]bool{"b": true},
		1, 2,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, rot.RemovedReservedParty)
	// nobody is waiting, so no regular member rotates out
	assert.Empty(t, rot.RotatedOut)
	assert.Equal(t, []string{"a"}, rot.Party)
	assert.Empty(t, rot.Queue)
	assert.Equal(t, 1, rot.PartyShortage)
}
