package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/tally/internal/domain/user"
	"github.com/rpggio/tally/internal/domain/vote"
	"github.com/rpggio/tally/internal/repository"
)

// VoteRepository implements vote.Repository for SQLite
type VoteRepository struct {
	db *DB
}

// NewVoteRepository creates a new VoteRepository
func NewVoteRepository(db *DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// HasVoted reports whether a vote row exists for the pair
func (r *VoteRepository) HasVoted(ctx context.Context, voterID, projectID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE voter_id = ? AND project_id = ?`,
		voterID, projectID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return count > 0, nil
}

// ClaimIntent inserts a pending intent. The unique (voter_id, project_id)
// index makes this the single arbiter between concurrent attempts.
func (r *VoteRepository) ClaimIntent(ctx context.Context, in *vote.Intent) error {
	query := `
		INSERT INTO vote_intents (id, voter_id, project_id, vote_hash, nonce, state,
			attempts, last_error, lease_until, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		in.ID,
		in.VoterID,
		in.ProjectID,
		in.VoteHash,
		in.Nonce,
		in.State,
		in.Attempts,
		in.LastError,
		in.LeaseUntil.UnixNano(),
		in.CreatedAt,
	)
	if err != nil {
		if cerr := classifyVoteInsert(err, "vote_intents"); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to claim intent: %w", err)
	}

	return nil
}

// GetIntent retrieves the intent for a (voter, project) pair
func (r *VoteRepository) GetIntent(ctx context.Context, voterID, projectID string) (*vote.Intent, error) {
	query := `
		SELECT id, voter_id, project_id, vote_hash, nonce, state, attempts, last_error,
			lease_until, COALESCE(ledger_tx_ref, ''), created_at
		FROM vote_intents
		WHERE voter_id = ? AND project_id = ?
	`

	in, err := scanIntent(r.db.QueryRowContext(ctx, query, voterID, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get intent: %w", err)
	}

	return in, nil
}

// AcquireLease takes ownership of a pending intent whose lease has expired.
// It returns false when the intent is recorded, gone, or still leased.
func (r *VoteRepository) AcquireLease(ctx context.Context, intentID string, now, until time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE vote_intents
		SET lease_until = ?
		WHERE id = ? AND state = 'pending' AND lease_until <= ?
	`, until.UnixNano(), intentID, now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// ReleaseIntent records a failed attempt and frees the lease for replay
func (r *VoteRepository) ReleaseIntent(ctx context.Context, intentID string, now time.Time, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE vote_intents
		SET attempts = attempts + 1, last_error = ?, lease_until = ?
		WHERE id = ? AND state = 'pending'
	`, reason, now.UnixNano(), intentID)
	if err != nil {
		return fmt.Errorf("failed to release intent: %w", err)
	}
	return nil
}

// AbandonIntent deletes a pending intent so the voter may try again
func (r *VoteRepository) AbandonIntent(ctx context.Context, intentID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM vote_intents WHERE id = ? AND state = 'pending'`, intentID)
	if err != nil {
		return fmt.Errorf("failed to abandon intent: %w", err)
	}
	return nil
}

// Commit inserts the vote, bumps the project tally and marks the intent
// recorded, all in one transaction.
func (r *VoteRepository) Commit(ctx context.Context, intentID string, v *vote.Vote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO votes (id, voter_id, project_id, vote_hash, nonce, ledger_tx_ref, cast_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.VoterID, v.ProjectID, v.VoteHash, v.Nonce, v.LedgerTxRef, v.CastAt)
	if err != nil {
		if cerr := classifyVoteInsert(err, "votes"); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE projects SET total_votes = total_votes + 1 WHERE id = ?`, v.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to increment total votes: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE vote_intents
		SET state = 'recorded', ledger_tx_ref = ?
		WHERE id = ? AND state = 'pending'
	`, v.LedgerTxRef, intentID)
	if err != nil {
		return fmt.Errorf("failed to mark intent recorded: %w", err)
	}
	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: intent %s is not pending", repository.ErrDuplicate, intentID)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListExpiredIntents returns pending intents whose lease has run out, oldest first
func (r *VoteRepository) ListExpiredIntents(ctx context.Context, now time.Time, limit int) ([]vote.Intent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, voter_id, project_id, vote_hash, nonce, state, attempts, last_error,
			lease_until, COALESCE(ledger_tx_ref, ''), created_at
		FROM vote_intents
		WHERE state = 'pending' AND lease_until <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`, now.UnixNano(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list intents: %w", err)
	}
	defer rows.Close()

	var intents []vote.Intent
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intent: %w", err)
		}
		intents = append(intents, *in)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intent rows: %w", err)
	}

	return intents, nil
}

// ListByProject returns a project's votes with voter details, oldest first
func (r *VoteRepository) ListByProject(ctx context.Context, projectID string) ([]vote.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT v.id, v.voter_id, v.project_id, v.vote_hash, v.nonce, v.ledger_tx_ref, v.cast_at,
			u.id, u.name, u.email
		FROM votes v
		JOIN users u ON u.id = v.voter_id
		WHERE v.project_id = ?
		ORDER BY v.cast_at ASC, v.id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project votes: %w", err)
	}
	defer rows.Close()

	votes := []vote.Vote{}
	for rows.Next() {
		var v vote.Vote
		var voter user.Summary
		err := rows.Scan(&v.ID, &v.VoterID, &v.ProjectID, &v.VoteHash, &v.Nonce, &v.LedgerTxRef, &v.CastAt,
			&voter.ID, &voter.Name, &voter.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.Voter = &voter
		votes = append(votes, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote rows: %w", err)
	}

	return votes, nil
}

// ListByVoter returns a voter's votes with project details, newest first
func (r *VoteRepository) ListByVoter(ctx context.Context, voterID string) ([]vote.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT v.id, v.voter_id, v.project_id, v.vote_hash, v.nonce, v.ledger_tx_ref, v.cast_at,
			p.id, p.title, p.status
		FROM votes v
		JOIN projects p ON p.id = v.project_id
		WHERE v.voter_id = ?
		ORDER BY v.cast_at DESC, v.id
	`, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voter votes: %w", err)
	}
	defer rows.Close()

	votes := []vote.Vote{}
	for rows.Next() {
		var v vote.Vote
		var proj vote.ProjectSummary
		err := rows.Scan(&v.ID, &v.VoterID, &v.ProjectID, &v.VoteHash, &v.Nonce, &v.LedgerTxRef, &v.CastAt,
			&proj.ID, &proj.Title, &proj.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.Project = &proj
		votes = append(votes, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote rows: %w", err)
	}

	return votes, nil
}

func scanIntent(row rowScanner) (*vote.Intent, error) {
	var in vote.Intent
	var leaseUntil int64
	err := row.Scan(
		&in.ID,
		&in.VoterID,
		&in.ProjectID,
		&in.VoteHash,
		&in.Nonce,
		&in.State,
		&in.Attempts,
		&in.LastError,
		&leaseUntil,
		&in.LedgerTxRef,
		&in.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	in.LeaseUntil = time.Unix(0, leaseUntil)
	return &in, nil
}
