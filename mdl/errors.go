package mdl

import "errors"

// Errors returned while opening, walking, or rewriting a model.
var (
	// ErrInvalidSignature is returned when the MDL prelude's reserved
	// leading word is non-zero.
	ErrInvalidSignature = errors.New("mdl: invalid prelude")

	// ErrOffsetOutOfBounds is returned when a stored offset (root
	// node, child array, mesh sub-header field) falls outside the
	// mapped buffer.
	ErrOffsetOutOfBounds = errors.New("mdl: offset out of bounds")

	// ErrCycle is returned by Walk when a node's descendants loop
	// back to an already-visited offset.
	ErrCycle = errors.New("mdl: node graph contains a cycle")

	// ErrNotASCII is returned when a fixed-width name field contains
	// a non-ASCII byte.
	ErrNotASCII = errors.New("mdl: name field is not ASCII")

	// ErrInsertionConflict names the case of a generation converter's
	// fixed insertion point falling inside a relocated span of a prior
	// insertion. The convert package does not check for this case, and
	// no function in this module returns this error.
	ErrInsertionConflict = errors.New("mdl: insertion point collides with a prior offset shift")
)
