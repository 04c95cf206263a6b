package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrInvalidTransition indicates a status change outside the lifecycle table.
	ErrInvalidTransition = errors.New("invalid project status transition")
	// ErrConflict indicates the project status changed during the update.
	ErrConflict = errors.New("project modified concurrently")
	// ErrLedgerUnavailable indicates the ledger could not be reached.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrLedgerRejected indicates the ledger refused the registration.
	ErrLedgerRejected = errors.New("ledger rejected project")
	// ErrIntegrityViolation indicates a ledger reference collided with an existing project.
	ErrIntegrityViolation = errors.New("project integrity violation")
)
