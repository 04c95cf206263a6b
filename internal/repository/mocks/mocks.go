package mocks

import (
	"context"
	"time"

	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/user"
	"github.com/rpggio/tally/internal/domain/vote"
	"github.com/stretchr/testify/mock"
)

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// TokenIssuer is a mock for user.TokenIssuer.
type TokenIssuer struct {
	mock.Mock
}

func (m *TokenIssuer) Issue(id auth.Identity) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context) ([]project.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Update(ctx context.Context, proj *project.Project, expectedStatus project.Status) error {
	args := m.Called(ctx, proj, expectedStatus)
	return args.Error(0)
}

// VoteRepository is a mock for vote.Repository.
type VoteRepository struct {
	mock.Mock
}

func (m *VoteRepository) HasVoted(ctx context.Context, voterID, projectID string) (bool, error) {
	args := m.Called(ctx, voterID, projectID)
	return args.Bool(0), args.Error(1)
}

func (m *VoteRepository) ClaimIntent(ctx context.Context, intent *vote.Intent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *VoteRepository) GetIntent(ctx context.Context, voterID, projectID string) (*vote.Intent, error) {
	args := m.Called(ctx, voterID, projectID)
	if in, ok := args.Get(0).(*vote.Intent); ok {
		return in, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VoteRepository) AcquireLease(ctx context.Context, intentID string, now, until time.Time) (bool, error) {
	args := m.Called(ctx, intentID, now, until)
	return args.Bool(0), args.Error(1)
}

func (m *VoteRepository) ReleaseIntent(ctx context.Context, intentID string, now time.Time, reason string) error {
	args := m.Called(ctx, intentID, now, reason)
	return args.Error(0)
}

func (m *VoteRepository) AbandonIntent(ctx context.Context, intentID string) error {
	args := m.Called(ctx, intentID)
	return args.Error(0)
}

func (m *VoteRepository) Commit(ctx context.Context, intentID string, v *vote.Vote) error {
	args := m.Called(ctx, intentID, v)
	return args.Error(0)
}

func (m *VoteRepository) ListExpiredIntents(ctx context.Context, now time.Time, limit int) ([]vote.Intent, error) {
	args := m.Called(ctx, now, limit)
	if list, ok := args.Get(0).([]vote.Intent); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VoteRepository) ListByProject(ctx context.Context, projectID string) ([]vote.Vote, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]vote.Vote); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VoteRepository) ListByVoter(ctx context.Context, voterID string) ([]vote.Vote, error) {
	args := m.Called(ctx, voterID)
	if list, ok := args.Get(0).([]vote.Vote); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Ledger is a mock for ledger.Client.
type Ledger struct {
	mock.Mock
}

func (m *Ledger) RecordProject(ctx context.Context, title string) (string, error) {
	args := m.Called(ctx, title)
	return args.String(0), args.Error(1)
}

func (m *Ledger) RecordVote(ctx context.Context, projectRef, voteHash, voterAddress string) (string, error) {
	args := m.Called(ctx, projectRef, voteHash, voterAddress)
	return args.String(0), args.Error(1)
}
