package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/vote"
)

// APIError represents an MCP tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to
// INTERNAL without exposing their text.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return &APIError{Code: "UNAUTHENTICATED", Message: "authentication required", RecoveryHint: "Send a bearer token"}
	case errors.Is(err, auth.ErrForbidden):
		return &APIError{Code: "FORBIDDEN", Message: "not authorized for this action"}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call list_projects for valid IDs"}
	case errors.Is(err, vote.ErrProjectNotActive):
		return &APIError{Code: "PROJECT_NOT_ACTIVE", Message: "project is not active for voting"}
	case errors.Is(err, vote.ErrDuplicateVote):
		return &APIError{Code: "DUPLICATE_VOTE", Message: "already voted for this project", RecoveryHint: "Call list_my_votes"}
	case errors.Is(err, vote.ErrLedgerRejected):
		return &APIError{Code: "LEDGER_REJECTED", Message: "ledger rejected the vote"}
	case errors.Is(err, vote.ErrLedgerUnavailable):
		return &APIError{Code: "LEDGER_UNAVAILABLE", Message: "ledger unavailable", RecoveryHint: "Retry later"}
	case errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}

func toolError(err error) error {
	if err == nil {
		return nil
	}
	return MapError(err)
}
