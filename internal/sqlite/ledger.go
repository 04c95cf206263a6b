package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/tally/internal/ledger"
)

// BlockStore implements ledger.BlockStore for SQLite
type BlockStore struct {
	db *DB
}

// NewBlockStore creates a new BlockStore
func NewBlockStore(db *DB) *BlockStore {
	return &BlockStore{db: db}
}

// Append stores one block. Blocks are never rewritten.
func (s *BlockStore) Append(ctx context.Context, b ledger.Block) error {
	query := `
		INSERT INTO ledger_blocks (idx, timestamp, prev_hash, hash, kind, project_ref, vote_hash, voter, title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		b.Index,
		b.Timestamp,
		b.PrevHash,
		b.Hash,
		b.Kind,
		b.ProjectRef,
		b.VoteHash,
		b.Voter,
		b.Title,
	)
	if err != nil {
		return fmt.Errorf("failed to append block: %w", err)
	}

	return nil
}

// Load returns every block in index order
func (s *BlockStore) Load(ctx context.Context) ([]ledger.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, timestamp, prev_hash, hash, kind, project_ref, vote_hash, voter, title
		FROM ledger_blocks
		ORDER BY idx ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocks: %w", err)
	}
	defer rows.Close()

	var blocks []ledger.Block
	for rows.Next() {
		var b ledger.Block
		err := rows.Scan(&b.Index, &b.Timestamp, &b.PrevHash, &b.Hash, &b.Kind,
			&b.ProjectRef, &b.VoteHash, &b.Voter, &b.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating block rows: %w", err)
	}

	return blocks, nil
}
