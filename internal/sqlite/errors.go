package sqlite

import (
	"fmt"
	"strings"

	"github.com/rpggio/tally/internal/repository"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// uniqueOn reports whether err is a unique violation naming the column,
// e.g. "votes.vote_hash".
func uniqueOn(err error, column string) bool {
	return isUniqueViolation(err) && strings.Contains(err.Error(), column)
}

// classifyVoteInsert maps constraint failures on votes and vote_intents.
// A second row for the same voter and project is a duplicate; any other
// unique collision (hash, ledger reference) is an integrity failure. It
// returns nil for errors that are not constraint failures.
func classifyVoteInsert(err error, table string) error {
	switch {
	case uniqueOn(err, table+".voter_id"):
		return fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", repository.ErrIntegrity, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", repository.ErrForeignKeyViolation, err)
	}
	return nil
}
