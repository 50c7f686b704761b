// Package resolver implements the idempotency and conflict state
// machine for reorder requests. It is pure: the transactional store
// loads a room's state, calls Resolve, and persists the result —
// all inside one transaction with the room row locked, so no two
// concurrent requests for the same room can both act on the same
// order_version.
package resolver

import (
	"github.com/ytqm/ytqm/internal/engine"
	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/ophash"
)

// AppliedOp is the recorded evidence that a client_op_id has been
// consumed, with the hash of the operation it carried and the version
// its commit produced.
type AppliedOp struct {
	OpHash  string
	Version int64
}

// State is the authoritative room state a request resolves against.
type State struct {
	Version   int64
	PartySize int
	Party     []string
	Queue     []string

	// AppliedOps maps client_op_id -> record. The store only needs to
	// populate the entry for the request's own op id.
	AppliedOps map[string]AppliedOp
}

// Request is one validated-or-not reorder apply request.
type Request struct {
	ExpectedVersion int64
	ClientOpID      string
	Op              models.ReorderOp
}

// Result reports the outcome plus the snapshot the caller should now
// trust. Party/Queue echo current state on every non-ok outcome and
// the freshly computed membership on ok.
type Result struct {
	Outcome models.Outcome
	Version int64
	Party   []string
	Queue   []string

	// Reason holds the validation or engine rejection message when
	// Outcome is reject.
	Reason string

	// OpHash is set for ok so the store can record the applied op.
	OpHash string
}

// Resolve runs the apply-request state machine:
//
//  1. validate the request envelope and op shape (reject),
//  2. guard expected_version against current (version_conflict),
//  3. detect an already-consumed op id (replay / op_id_mismatch),
//  4. re-check membership and run the ordering engine (reject),
//  5. produce the new membership with version bumped by exactly 1 (ok).
func Resolve(st State, req Request) Result {
	current := func(outcome models.Outcome, reason string) Result {
		return Result{
			Outcome: outcome,
			Version: st.Version,
			Party:   st.Party,
			Queue:   st.Queue,
			Reason:  reason,
		}
	}

	if err := engine.ValidateRequest(req.ExpectedVersion, req.ClientOpID, req.Op); err != nil {
		return current(models.OutcomeReject, err.Error())
	}

	opHash := ophash.Hash(req.Op)

	if req.ExpectedVersion != st.Version {
		return current(models.OutcomeVersionConflict, "")
	}

	if prior, seen := st.AppliedOps[req.ClientOpID]; seen {
		if prior.OpHash == opHash {
			res := current(models.OutcomeReplay, "")
			res.Version = prior.Version
			return res
		}
		return current(models.OutcomeOpIDMismatch, "")
	}

	if err := engine.ValidateMembership(req.Op, st.Party, st.Queue); err != nil {
		return current(models.OutcomeReject, err.Error())
	}

	party, queue, err := engine.Apply(st.Party, st.Queue, st.PartySize, req.Op)
	if err != nil {
		return current(models.OutcomeReject, err.Error())
	}

	return Result{
		Outcome: models.OutcomeOK,
		Version: st.Version + 1,
		Party:   party,
		Queue:   queue,
		OpHash:  opHash,
	}
}
