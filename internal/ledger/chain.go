package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// BlockStore persists blocks in index order.
type BlockStore interface {
	Append(ctx context.Context, b Block) error
	Load(ctx context.Context) ([]Block, error)
}

// Chain is an in-process hash-chained ledger. It enforces the same rules as
// the voting contract: votes reference a registered project, a voter votes
// once per project, and a vote hash is recorded once.
type Chain struct {
	mu       sync.Mutex
	store    BlockStore
	blocks   []Block
	projects map[string]struct{}
	votes    map[string]Block  // vote hash -> vote block
	voters   map[string]string // project ref + voter -> vote hash
	now      func() time.Time
}

// NewChain loads the chain from store (nil keeps it in memory only) and
// creates the genesis block when the store is empty.
func NewChain(ctx context.Context, store BlockStore) (*Chain, error) {
	c := &Chain{
		store:    store,
		projects: make(map[string]struct{}),
		votes:    make(map[string]Block),
		voters:   make(map[string]string),
		now:      time.Now,
	}

	if store != nil {
		blocks, err := store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load ledger blocks: %w", err)
		}
		for _, b := range blocks {
			c.index(b)
		}
		c.blocks = blocks
	}

	if len(c.blocks) == 0 {
		genesis := Block{Index: 0, Timestamp: c.now().UnixNano(), PrevHash: genesisPrevHash, Kind: KindGenesis}
		genesis.Hash = genesis.computeHash()
		if err := c.persist(ctx, genesis); err != nil {
			return nil, err
		}
		c.blocks = append(c.blocks, genesis)
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("ledger corrupted: %w", err)
	}
	return c, nil
}

// RecordProject appends a project registration and returns its reference.
func (c *Chain) RecordProject(ctx context.Context, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: empty project title", ErrRejected)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.append(ctx, Block{Kind: KindProject, Title: title})
	if err != nil {
		return "", err
	}
	return b.Ref(), nil
}

// RecordVote appends a vote and returns its transaction reference.
func (c *Chain) RecordVote(ctx context.Context, projectRef, voteHash, voterAddress string) (string, error) {
	if projectRef == "" || voteHash == "" || voterAddress == "" {
		return "", fmt.Errorf("%w: incomplete vote", ErrRejected)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.votes[voteHash]; ok {
		if existing.ProjectRef != projectRef || existing.Voter != voterAddress {
			return "", fmt.Errorf("%w: vote hash already used", ErrRejected)
		}
		return existing.Ref(), nil
	}
	if _, ok := c.projects[projectRef]; !ok {
		return "", fmt.Errorf("%w: unknown project %s", ErrRejected, projectRef)
	}
	if _, ok := c.voters[voterKey(projectRef, voterAddress)]; ok {
		return "", fmt.Errorf("%w: voter already voted", ErrRejected)
	}

	b, err := c.append(ctx, Block{
		Kind:       KindVote,
		ProjectRef: projectRef,
		VoteHash:   voteHash,
		Voter:      voterAddress,
	})
	if err != nil {
		return "", err
	}
	return b.Ref(), nil
}

// HasVoted reports whether voter has a vote recorded for projectRef.
func (c *Chain) HasVoted(projectRef, voterAddress string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.voters[voterKey(projectRef, voterAddress)]
	return ok
}

// ProjectVotes counts the votes recorded for projectRef.
func (c *Chain) ProjectVotes(projectRef string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.votes {
		if b.ProjectRef == projectRef {
			n++
		}
	}
	return n
}

// Len returns the number of blocks including genesis.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// Verify checks genesis, index continuity, hash linkage and block hashes.
func (c *Chain) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verify()
}

func (c *Chain) verify() error {
	if len(c.blocks) == 0 {
		return fmt.Errorf("empty chain")
	}
	if c.blocks[0].PrevHash != genesisPrevHash || c.blocks[0].Kind != KindGenesis {
		return fmt.Errorf("invalid genesis block")
	}
	for i, b := range c.blocks {
		if b.Hash != b.computeHash() {
			return fmt.Errorf("block %d: hash mismatch", b.Index)
		}
		if i == 0 {
			continue
		}
		prev := c.blocks[i-1]
		if b.Index != prev.Index+1 {
			return fmt.Errorf("block %d: index gap after %d", b.Index, prev.Index)
		}
		if b.PrevHash != prev.Hash {
			return fmt.Errorf("block %d: broken link", b.Index)
		}
	}
	return nil
}

// append links, persists and indexes b. Callers hold c.mu.
func (c *Chain) append(ctx context.Context, b Block) (Block, error) {
	latest := c.blocks[len(c.blocks)-1]
	b.Index = latest.Index + 1
	b.Timestamp = c.now().UnixNano()
	b.PrevHash = latest.Hash
	b.Hash = b.computeHash()

	if err := c.persist(ctx, b); err != nil {
		return Block{}, err
	}
	c.blocks = append(c.blocks, b)
	c.index(b)
	return b, nil
}

func (c *Chain) persist(ctx context.Context, b Block) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Append(ctx, b); err != nil {
		return fmt.Errorf("%w: persist block: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *Chain) index(b Block) {
	switch b.Kind {
	case KindProject:
		c.projects[b.Ref()] = struct{}{}
	case KindVote:
		c.votes[b.VoteHash] = b
		c.voters[voterKey(b.ProjectRef, b.Voter)] = b.VoteHash
	}
}

func voterKey(projectRef, voter string) string {
	return projectRef + "|" + voter
}
