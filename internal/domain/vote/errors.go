package vote

import (
	"errors"

	"github.com/rpggio/tally/internal/domain/project"
)

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = project.ErrProjectNotFound
	// ErrProjectNotActive indicates the project is outside its voting window.
	ErrProjectNotActive = errors.New("project is not active for voting")
	// ErrDuplicateVote indicates the voter already voted (or is voting) on the project.
	ErrDuplicateVote = errors.New("already voted for this project")
	// ErrLedgerUnavailable indicates a transient ledger failure; the attempt is kept for replay.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrLedgerRejected indicates the ledger permanently refused the vote.
	ErrLedgerRejected = errors.New("ledger rejected vote")
	// ErrIntegrityViolation indicates a vote hash or ledger reference collision.
	ErrIntegrityViolation = errors.New("vote integrity violation")
)
