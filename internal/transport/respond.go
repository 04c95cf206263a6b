package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/user"
	"github.com/rpggio/tally/internal/domain/vote"
)

const maxBodyBytes = 1 << 20

// errorBody is the failure envelope.
type errorBody struct {
	Message   string `json:"message"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps a domain error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Not authorized"
	case errors.Is(err, project.ErrProjectNotFound):
		return http.StatusNotFound, "Project not found"
	case errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, vote.ErrProjectNotActive):
		return http.StatusBadRequest, "Project is not active for voting"
	case errors.Is(err, vote.ErrDuplicateVote):
		return http.StatusBadRequest, "You have already voted for this project"
	case errors.Is(err, project.ErrInvalidTransition):
		return http.StatusBadRequest, "Invalid project status transition"
	case errors.Is(err, project.ErrInvalidInput), errors.Is(err, user.ErrInvalidInput), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "Invalid input"
	case errors.Is(err, vote.ErrLedgerRejected), errors.Is(err, project.ErrLedgerRejected):
		return http.StatusBadRequest, "Ledger rejected the request"
	case errors.Is(err, project.ErrConflict):
		return http.StatusConflict, "Project was modified concurrently"
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, vote.ErrLedgerUnavailable), errors.Is(err, project.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable, "Ledger unavailable, try again later"
	}
	return http.StatusInternalServerError, "Internal server error"
}

var (
	errBadRequest = errors.New("malformed request body")
	errNoRoute    = errors.New("no such route")
)

// respondError writes err using the status mapping. Server-side failures
// carry a generic error string; details stay in the logs.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logFailure(r, status, err)
		writeError(w, r, status, message, errors.New(http.StatusText(status)))
		return
	}
	writeError(w, r, status, message, err)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	writeJSON(w, status, errorBody{
		Message:   message,
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// respond writes the success envelope {"message": ..., key: value}.
func respond(w http.ResponseWriter, status int, message string, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["message"] = message
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
