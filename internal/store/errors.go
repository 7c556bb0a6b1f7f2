package store

import "errors"

var (
	// ErrNotFound is returned when a claim, evidence item, source,
	// challenge, or reputation record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClaimLocked is returned when a score write targets a locked claim.
	ErrClaimLocked = errors.New("claim is locked")

	// ErrCyclicDependency is returned when a dependency write would create
	// a direct cycle between two claims.
	ErrCyclicDependency = errors.New("cyclic claim dependency")

	// ErrDuplicate is returned when an insert collides with an existing
	// row on a unique key.
	ErrDuplicate = errors.New("already exists")
)
