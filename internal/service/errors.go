package service

import "errors"

// Error taxonomy shared by all services. Repository sentinels are wrapped
// into one of these four kinds so the transport layer can translate them
// with errors.Is; anything outside the taxonomy is an internal fault.
var (
	// ErrNotFound covers missing entities and entities owned by someone else
	ErrNotFound = errors.New("not found")

	// ErrValidation covers bad input shape or value
	ErrValidation = errors.New("validation failed")

	// ErrConflict covers business-rule violations: duplicate names,
	// duplicate article in a list, mutating a finalized list, deleting a
	// still-referenced entity.
	ErrConflict = errors.New("conflict")

	// ErrPermissionDenied covers ownership and role violations
	ErrPermissionDenied = errors.New("permission denied")
)
