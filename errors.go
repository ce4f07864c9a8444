package glprog

import "errors"

var (
	// ErrCapabilityMismatch is returned when draw state requests a feature the context lacks.
	// Descriptor construction gates optional features so this indicates a caller defect.
	ErrCapabilityMismatch = errors.New("draw state requires unsupported capability")
	// ErrInvalidState is returned for draw state that cannot be expressed as a program.
	ErrInvalidState = errors.New("invalid draw state")
	// ErrEvicted is returned when using an entry no longer owned by its cache.
	ErrEvicted = errors.New("program entry evicted")
)
