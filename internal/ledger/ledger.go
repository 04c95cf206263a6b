// Package ledger abstracts the append-only external ledger that records
// project registrations and votes.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrRejected is a permanent refusal; retrying the same input fails again.
	ErrRejected = errors.New("ledger rejected request")
	// ErrUnavailable is a transient failure (unreachable, timeout, circuit open).
	ErrUnavailable = errors.New("ledger unavailable")
)

// Client is the ledger contract consumed by the project and vote services.
//
// RecordVote must be idempotent per vote hash: replaying the same hash for
// the same project returns the original transaction reference.
type Client interface {
	RecordProject(ctx context.Context, title string) (string, error)
	RecordVote(ctx context.Context, projectRef, voteHash, voterAddress string) (string, error)
}
