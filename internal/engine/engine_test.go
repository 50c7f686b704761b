package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytqm/ytqm/internal/models"
)

func strptr(s string) *string { return &s }

func insertOp(srcList models.List, srcID string, destList models.List, overID *string, edge models.Edge) models.ReorderOp {
	return models.ReorderOp{
		Source: models.ReorderSource{List: srcList, ID: srcID},
		Dest:   models.ReorderDest{List: destList, OverID: overID, Edge: edge},
		Mode:   models.ModeInsert,
	}
}

func swapOp(srcID string, overID string) models.ReorderOp {
	return models.ReorderOp{
		Source: models.ReorderSource{List: models.ListQueue, ID: srcID},
		Dest:   models.ReorderDest{List: models.ListParty, OverID: strptr(overID), Edge: models.EdgeAfter},
		Mode:   models.ModeSwap,
	}
}

func TestApplyPartyToQueueBeforeAnchor(t *testing.T) {
	// party=[a,b] cap 2, queue=[c,d]; move a before d: c is promoted to
	// fill the vacancy, queue renumbers to [a,d].
	party, queue, err := Apply(
		[]string{"a", "b"},
		[]string{"c", "d"},
		2,
		insertOp(models.ListParty, "a", models.ListQueue, strptr("d"), models.EdgeBefore),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, party)
	assert.Equal(t, []string{"a", "d"}, queue)
}

func TestApplySwapExchangesSlots(t *testing.T) {
	// swap c (queue) into b's party slot: b lands in c's old queue
	// slot, not at the tail.
	party, queue, err := Apply(
		[]string{"a", "b"},
		[]string{"c", "d"},
		2,
		swapOp("c", "b"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, party)
	assert.Equal(t, []string{"b", "d"}, queue)
}

func TestApplySwapMiddleOfQueue(t *testing.T) {
	party, queue, err := Apply(
		[]string{"a", "b"},
		[]string{"x", "c", "y"},
		2,
		swapOp("c", "a"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, party)
	assert.Equal(t, []string{"x", "a", "y"}, queue)
}

func TestApplySameListReorder(t *testing.T) {
	party, queue, err := Apply(
		[]string{"a", "b", "c"},
		nil,
		3,
		insertOp(models.ListParty, "c", models.ListParty, strptr("a"), models.EdgeBefore),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, party)
	assert.Empty(t, queue)
}

func TestApplyDropOntoSelfIsNoop(t *testing.T) {
	party, queue, err := Apply(
		[]string{"a", "b"},
		[]string{"c"},
		2,
		insertOp(models.ListParty, "a", models.ListParty, strptr("a"), models.EdgeAfter),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, party)
	assert.Equal(t, []string{"c"}, queue)
}

func TestApplyAppendToEmptyQueue(t *testing.T) {
	party, queue, err := Apply(
		[]string{"a", "b"},
		nil,
		2,
		insertOp(models.ListParty, "b", models.ListQueue, nil, models.EdgeEmpty),
	)
	require.NoError(t, err)
	// b demoted, then immediately promoted back: queue was the only
	// candidate to refill the vacancy.
	assert.Equal(t, []string{"a", "b"}, party)
	assert.Empty(t, queue)
}

func TestApplyQueueToPartyAppendNormalizes(t *testing.T) {
	// queue member dropped onto party container; party is full so its
	// front member is demoted to the queue tail.
	party, queue, err := Apply(
		[]string{"a", "b"},
		[]string{"c", "d"},
		2,
		insertOp(models.ListQueue, "c", models.ListParty, nil, models.EdgeEmpty),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, party)
	assert.Equal(t, []string{"d", "a"}, queue)
}

func TestApplyCrossListKeepsUnionUniqueAndCapacity(t *testing.T) {
	parties := [][]string{{"a"}, {"a", "b"}, {"a", "b", "c"}}
	for _, party := range parties {
		queue := []string{"x", "y", "z"}
		got, gotQ, err := Apply(party, queue, len(party),
			insertOp(models.ListQueue, "y", models.ListParty, strptr(party[0]), models.EdgeBefore))
		require.NoError(t, err)

		assert.LessOrEqual(t, len(got), len(party))
		seen := map[string]bool{}
		for _, u := range append(append([]string{}, got...), gotQ...) {
			assert.False(t, seen[u], "duplicate %q", u)
			seen[u] = true
		}
		assert.Len(t, seen, len(party)+len(queue))
	}
}

func TestApplyErrors(t *testing.T) {
	party := []string{"a", "b"}
	queue := []string{"c", "d"}

	tests := []struct {
		name string
		op   models.ReorderOp
		want error
	}{
		{
			"unknown source",
			insertOp(models.ListParty, "nope", models.ListQueue, nil, models.EdgeEmpty),
			ErrUnknownSourceID,
		},
		{
			"source in wrong list",
			insertOp(models.ListParty, "c", models.ListQueue, nil, models.EdgeEmpty),
			ErrUnknownSourceID,
		},
		{
			"unknown anchor",
			insertOp(models.ListParty, "a", models.ListQueue, strptr("nope"), models.EdgeBefore),
			ErrUnknownOverID,
		},
		{
			"nil anchor with before edge",
			insertOp(models.ListParty, "a", models.ListQueue, nil, models.EdgeBefore),
			ErrInvalidDropTarget,
		},
		{
			"anchor with empty edge",
			insertOp(models.ListParty, "a", models.ListQueue, strptr("c"), models.EdgeEmpty),
			ErrInvalidDropTarget,
		},
		{
			"same list swap",
			models.ReorderOp{
				Source: models.ReorderSource{List: models.ListQueue, ID: "c"},
				Dest:   models.ReorderDest{List: models.ListQueue, OverID: strptr("d"), Edge: models.EdgeAfter},
				Mode:   models.ModeSwap,
			},
			ErrSameListSwap,
		},
		{
			"party to queue swap",
			models.ReorderOp{
				Source: models.ReorderSource{List: models.ListParty, ID: "a"},
				Dest:   models.ReorderDest{List: models.ListQueue, OverID: strptr("c"), Edge: models.EdgeAfter},
				Mode:   models.ModeSwap,
			},
			ErrInvalidSwapShape,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Apply(party, queue, 2, tc.op)
			assert.ErrorIs(t, err, tc.want)
			// inputs must be untouched on rejection
			assert.Equal(t, []string{"a", "b"}, party)
			assert.Equal(t, []string{"c", "d"}, queue)
		})
	}
}

func TestNormalizeDemotesThenPromotes(t *testing.T) {
	party, queue := Normalize([]string{"a", "b", "c", "d"}, []string{"x"}, 2)
	assert.Equal(t, []string{"c", "d"}, party)
	assert.Equal(t, []string{"x", "a", "b"}, queue)

	party, queue = Normalize([]string{"a"}, []string{"x", "y"}, 3)
	assert.Equal(t, []string{"a", "x", "y"}, party)
	assert.Empty(t, queue)

	party, queue = Normalize([]string{"a"}, nil, 4)
	assert.Equal(t, []string{"a"}, party)
	assert.Empty(t, queue)
}
