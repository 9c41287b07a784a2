package core

import "github.com/rotisserie/eris"

var (
	// ErrInvalidConfig reports parameters rejected before any simulation work starts.
	ErrInvalidConfig = eris.New("invalid config")
	// ErrOutOfBounds reports a coordinate outside the grid lattice.
	ErrOutOfBounds = eris.New("coordinate out of bounds")
	// ErrInvariantViolation reports a forbidden state transition, such as
	// mutating a blocked cell or converting land that is already built.
	ErrInvariantViolation = eris.New("invariant violation")
)
