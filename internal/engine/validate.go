package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ytqm/ytqm/internal/models"
)

// ErrInvalidRequest tags every validator failure so callers can map
// the whole family to a 400 without enumerating reasons.
var ErrInvalidRequest = errors.New("invalid reorder request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ValidateRequest checks the envelope of a reorder request: the
// idempotency key must be UUID-shaped, the expected version
// non-negative, and the op well-formed. It runs identically on client
// and server; membership checks are a separate, server-only step.
func ValidateRequest(expectedVersion int64, clientOpID string, op models.ReorderOp) error {
	if strings.TrimSpace(clientOpID) == "" {
		return invalidf("client_op_id is required")
	}
	if _, err := uuid.Parse(strings.TrimSpace(clientOpID)); err != nil {
		return invalidf("client_op_id must be a UUID")
	}
	if expectedVersion < 0 {
		return invalidf("expected_version must be a non-negative integer")
	}
	return ValidateShape(op)
}

// ValidateShape rejects malformed or contradictory operations before
// they reach the engine or the store.
func ValidateShape(op models.ReorderOp) error {
	op = op.Normalized()

	if !op.Source.List.Valid() {
		return invalidf("op.source.list must be party or queue")
	}
	if op.Source.ID == "" {
		return invalidf("op.source.id is required")
	}
	if !op.Dest.List.Valid() {
		return invalidf("op.dest.list must be party or queue")
	}
	if !op.Dest.Edge.Valid() {
		return invalidf("op.dest.edge must be before, after or empty")
	}
	if !op.Mode.Valid() {
		return invalidf("op.mode must be insert or swap")
	}

	// overId is nil exactly when the drop landed on an empty container.
	if op.Dest.OverID == nil {
		if op.Dest.Edge != models.EdgeEmpty {
			return invalidf("invalid drop target")
		}
	} else {
		if *op.Dest.OverID == "" {
			return invalidf("op.dest.overId must not be blank")
		}
		if op.Dest.Edge == models.EdgeEmpty {
			return invalidf("invalid drop target")
		}
	}

	if op.Source.List == op.Dest.List && op.Mode == models.ModeSwap {
		return invalidf("swap within same list is not allowed")
	}
	if op.Mode == models.ModeSwap {
		if op.Source.List != models.ListQueue || op.Dest.List != models.ListParty || op.Dest.OverID == nil {
			return invalidf("invalid op (swap)")
		}
	}
	return nil
}

// ValidateMembership confirms referential integrity against current
// server state: the source must exist in its claimed list and a non-nil
// overId must exist in the destination list. The client skips this
// check against its possibly stale view; the server re-runs it against
// freshly loaded rows.
func ValidateMembership(op models.ReorderOp, party, queue []string) error {
	op = op.Normalized()

	sourceIn := party
	if op.Source.List == models.ListQueue {
		sourceIn = queue
	}
	if !slices.Contains(sourceIn, op.Source.ID) {
		return invalidf("op.source.id %q not in %s", op.Source.ID, op.Source.List)
	}

	if op.Dest.OverID != nil {
		destIn := party
		if op.Dest.List == models.ListQueue {
			destIn = queue
		}
		if !slices.Contains(destIn, *op.Dest.OverID) {
			return invalidf("op.dest.overId %q not in %s", *op.Dest.OverID, op.Dest.List)
		}
	}
	return nil
}
