package engine

import "errors"

// Rejection reasons. All engine failures are local, synchronous
// rejections; no partial mutation is ever visible to the caller.
var (
	ErrUnknownSourceID   = errors.New("invalid op.source.id")
	ErrUnknownOverID     = errors.New("invalid op.dest.overId")
	ErrInvalidDropTarget = errors.New("invalid drop target")
	ErrSameListSwap      = errors.New("swap within same list is not allowed")
	ErrInvalidSwapShape  = errors.New("invalid op (swap)")

	ErrNothingToRotate = errors.New("nothing to rotate")
)
