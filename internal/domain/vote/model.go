package vote

import (
	"time"

	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/user"
)

// Vote is one recorded ballot. Votes are append-only.
type Vote struct {
	ID          string          `json:"id"`
	VoterID     string          `json:"voter_id"`
	ProjectID   string          `json:"project_id"`
	VoteHash    string          `json:"vote_hash"`
	Nonce       string          `json:"nonce"`
	LedgerTxRef string          `json:"ledger_tx_ref"`
	CastAt      time.Time       `json:"cast_at"`
	Voter       *user.Summary   `json:"voter,omitempty"`
	Project     *ProjectSummary `json:"project,omitempty"`
}

// ProjectSummary is the project projection embedded in a voter's ballots.
type ProjectSummary struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Status project.Status `json:"status"`
}

// IntentState tracks a cast attempt.
type IntentState string

const (
	// IntentPending: the ledger outcome is not committed locally yet.
	IntentPending IntentState = "pending"
	// IntentRecorded: the vote row exists.
	IntentRecorded IntentState = "recorded"
)

// Intent is the durable record of a cast attempt. It holds the voter's slot
// and the precomputed hash used for idempotent ledger replay.
type Intent struct {
	ID          string      `json:"id"`
	VoterID     string      `json:"voter_id"`
	ProjectID   string      `json:"project_id"`
	VoteHash    string      `json:"vote_hash"`
	Nonce       string      `json:"nonce"`
	State       IntentState `json:"state"`
	Attempts    int         `json:"attempts"`
	LastError   string      `json:"last_error,omitempty"`
	LeaseUntil  time.Time   `json:"lease_until"`
	LedgerTxRef string      `json:"ledger_tx_ref,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ReconcileResult reports one reconciliation pass.
type ReconcileResult struct {
	Settled   int `json:"settled"`
	Abandoned int `json:"abandoned"`
	Failed    int `json:"failed"`
}
