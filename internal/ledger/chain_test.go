package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	blocks []Block
	err    error
}

func (s *memStore) Append(_ context.Context, b Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.blocks = append(s.blocks, b)
	return nil
}

func (s *memStore) Load(_ context.Context) ([]Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Block(nil), s.blocks...), nil
}

func TestChain_Genesis(t *testing.T) {
	c, err := NewChain(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.NoError(t, c.Verify())
}

func TestChain_RecordProjectAndVote(t *testing.T) {
	ctx := context.Background()
	c, err := NewChain(ctx, nil)
	require.NoError(t, err)

	ref, err := c.RecordProject(ctx, "Bike lanes")
	require.NoError(t, err)
	require.Regexp(t, `^0x[0-9a-f]{64}$`, ref)

	tx, err := c.RecordVote(ctx, ref, "hash1", "voter1")
	require.NoError(t, err)
	require.NotEqual(t, ref, tx)
	require.True(t, c.HasVoted(ref, "voter1"))
	require.False(t, c.HasVoted(ref, "voter2"))
	require.Equal(t, 1, c.ProjectVotes(ref))
	require.Equal(t, 3, c.Len())
	require.NoError(t, c.Verify())
}

func TestChain_RecordVoteIsIdempotentPerHash(t *testing.T) {
	ctx := context.Background()
	c, err := NewChain(ctx, nil)
	require.NoError(t, err)
	ref, err := c.RecordProject(ctx, "Library")
	require.NoError(t, err)

	first, err := c.RecordVote(ctx, ref, "hash1", "voter1")
	require.NoError(t, err)
	again, err := c.RecordVote(ctx, ref, "hash1", "voter1")
	require.NoError(t, err)
	require.Equal(t, first, again)
	require.Equal(t, 1, c.ProjectVotes(ref))
}

func TestChain_RecordVoteRejections(t *testing.T) {
	ctx := context.Background()
	c, err := NewChain(ctx, nil)
	require.NoError(t, err)
	ref, err := c.RecordProject(ctx, "Park")
	require.NoError(t, err)

	_, err = c.RecordVote(ctx, "0xunknown", "hash1", "voter1")
	require.ErrorIs(t, err, ErrRejected)

	_, err = c.RecordVote(ctx, ref, "", "voter1")
	require.ErrorIs(t, err, ErrRejected)

	_, err = c.RecordVote(ctx, ref, "hash1", "voter1")
	require.NoError(t, err)

	// Same voter, different hash.
	_, err = c.RecordVote(ctx, ref, "hash2", "voter1")
	require.ErrorIs(t, err, ErrRejected)

	// Same hash reused by another voter.
	_, err = c.RecordVote(ctx, ref, "hash1", "voter2")
	require.ErrorIs(t, err, ErrRejected)

	_, err = c.RecordProject(ctx, "  ")
	require.ErrorIs(t, err, ErrRejected)
}

func TestChain_ReloadsFromStore(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	c, err := NewChain(ctx, store)
	require.NoError(t, err)
	ref, err := c.RecordProject(ctx, "Garden")
	require.NoError(t, err)
	tx, err := c.RecordVote(ctx, ref, "hash1", "voter1")
	require.NoError(t, err)

	reloaded, err := NewChain(ctx, store)
	require.NoError(t, err)
	require.Equal(t, c.Len(), reloaded.Len())
	require.True(t, reloaded.HasVoted(ref, "voter1"))

	again, err := reloaded.RecordVote(ctx, ref, "hash1", "voter1")
	require.NoError(t, err)
	require.Equal(t, tx, again)
}

func TestChain_DetectsTampering(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c, err := NewChain(ctx, store)
	require.NoError(t, err)
	_, err = c.RecordProject(ctx, "Garden")
	require.NoError(t, err)

	store.blocks[1].Title = "Parking lot"
	_, err = NewChain(ctx, store)
	require.Error(t, err)
}

func TestChain_StoreFailureIsTransient(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c, err := NewChain(ctx, store)
	require.NoError(t, err)

	store.err = errors.New("disk full")
	_, err = c.RecordProject(ctx, "Garden")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, 1, c.Len())
}
