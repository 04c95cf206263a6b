package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic concurrency check fails
	ErrConflict = errors.New("conflict: entity was modified concurrently")

	// ErrDuplicate is returned when a natural-key unique constraint fails,
	// e.g. a second vote for the same (voter, project) pair
	ErrDuplicate = errors.New("duplicate entity")

	// ErrIntegrity is returned when a derived unique value (vote hash,
	// ledger reference) collides with an existing row
	ErrIntegrity = errors.New("integrity violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
