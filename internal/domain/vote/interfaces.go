package vote

import (
	"context"
	"time"

	"github.com/rpggio/tally/internal/domain/project"
)

// Repository provides persistence for votes and cast intents.
type Repository interface {
	HasVoted(ctx context.Context, voterID, projectID string) (bool, error)
	ClaimIntent(ctx context.Context, intent *Intent) error
	GetIntent(ctx context.Context, voterID, projectID string) (*Intent, error)
	AcquireLease(ctx context.Context, intentID string, now, until time.Time) (bool, error)
	ReleaseIntent(ctx context.Context, intentID string, now time.Time, reason string) error
	AbandonIntent(ctx context.Context, intentID string) error
	// Commit inserts v, increments the project tally and marks the intent
	// recorded in one transaction.
	Commit(ctx context.Context, intentID string, v *Vote) error
	ListExpiredIntents(ctx context.Context, now time.Time, limit int) ([]Intent, error)
	ListByProject(ctx context.Context, projectID string) ([]Vote, error)
	ListByVoter(ctx context.Context, voterID string) ([]Vote, error)
}

// ProjectRepository loads the project being voted on.
type ProjectRepository interface {
	Get(ctx context.Context, id string) (*project.Project, error)
}

// Ledger appends votes to the external ledger.
type Ledger interface {
	RecordVote(ctx context.Context, projectRef, voteHash, voterAddress string) (string, error)
}
