package models

import "strings"

// List identifies which of the two ordered sets a reorder endpoint
// refers to.
type List string

const (
	ListParty List = "party"
	ListQueue List = "queue"
)

// Valid reports whether l is one of the two known lists.
func (l List) Valid() bool { return l == ListParty || l == ListQueue }

// Edge describes where a dragged item lands relative to the hovered
// row. EdgeEmpty is only legal when dropping onto an empty list
// container (OverID == nil).
type Edge string

const (
	EdgeBefore Edge = "before"
	EdgeAfter  Edge = "after"
	EdgeEmpty  Edge = "empty"
)

// Valid reports whether e is a known edge value.
func (e Edge) Valid() bool { return e == EdgeBefore || e == EdgeAfter || e == EdgeEmpty }

// Mode selects between a positional insert and a cross-list slot swap.
type Mode string

const (
	ModeInsert Mode = "insert"
	ModeSwap   Mode = "swap"
)

// Valid reports whether m is a known mode value.
func (m Mode) Valid() bool { return m == ModeInsert || m == ModeSwap }

// ReorderSource names the dragged member and the list it was dragged
// from.
type ReorderSource struct {
	List List   `json:"list"`
	ID   string `json:"id"`
}

// ReorderDest names the drop target. OverID is nil exactly when the
// drop landed on an empty list container (Edge == EdgeEmpty).
type ReorderDest struct {
	List   List    `json:"list"`
	OverID *string `json:"overId"`
	Edge   Edge    `json:"edge"`
}

// ReorderOp is a single drag-and-drop intent. It is not persisted;
// it is consumed at most once per client_op_id.
type ReorderOp struct {
	Source ReorderSource `json:"source"`
	Dest   ReorderDest   `json:"dest"`
	Mode   Mode          `json:"mode"`
}

// Normalized returns a copy of op with ids trimmed of surrounding
// whitespace, the form the op hash and the engine operate on.
func (op ReorderOp) Normalized() ReorderOp {
	out := op
	out.Source.ID = strings.TrimSpace(op.Source.ID)
	if op.Dest.OverID != nil {
		trimmed := strings.TrimSpace(*op.Dest.OverID)
		out.Dest.OverID = &trimmed
	}
	return out
}

// Outcome is the tri-state-plus result of applying a reorder request
// against the authoritative store.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeReplay          Outcome = "replay"
	OutcomeVersionConflict Outcome = "version_conflict"
	OutcomeOpIDMismatch    Outcome = "op_id_mismatch"
	OutcomeReject          Outcome = "reject"
)
