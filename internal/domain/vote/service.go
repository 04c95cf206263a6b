package vote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/ledger"
	"github.com/rpggio/tally/internal/repository"
)

const defaultLeaseTTL = 2 * time.Minute

// Service casts and lists votes.
type Service struct {
	votes    Repository
	projects ProjectRepository
	ledger   Ledger
	logger   *slog.Logger
	leaseTTL time.Duration
	now      func() time.Time
	nonce    func() (string, error)
}

// NewService creates a new vote service.
func NewService(votes Repository, projects ProjectRepository, ledger Ledger, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		votes:    votes,
		projects: projects,
		ledger:   ledger,
		logger:   logger,
		leaseTTL: defaultLeaseTTL,
		now:      time.Now,
		nonce:    NewNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cast records the caller's vote on a project. At most one vote per
// (voter, project) is ever committed, and the project tally moves with it.
func (s *Service) Cast(ctx context.Context, caller auth.Identity, projectID string) (*Vote, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}

	proj, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !proj.AcceptsVotes() {
		return nil, ErrProjectNotActive
	}

	voted, err := s.votes.HasVoted(ctx, caller.UserID, projectID)
	if err != nil {
		return nil, fmt.Errorf("checking existing vote: %w", err)
	}
	if voted {
		return nil, ErrDuplicateVote
	}

	intent, err := s.claim(ctx, caller.UserID, projectID)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, proj, intent)
}

// ListForProject returns every vote on a project with voter details.
func (s *Service) ListForProject(ctx context.Context, caller auth.Identity, projectID string) ([]Vote, error) {
	if err := caller.Require(auth.RoleProjectManager, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.loadProject(ctx, projectID); err != nil {
		return nil, err
	}

	votes, err := s.votes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing project votes: %w", err)
	}
	return votes, nil
}

// ListForVoter returns the caller's own votes with project details.
func (s *Service) ListForVoter(ctx context.Context, caller auth.Identity) ([]Vote, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}

	votes, err := s.votes.ListByVoter(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing voter votes: %w", err)
	}
	return votes, nil
}

// Reconcile settles pending intents whose lease expired, replaying their
// stored hash against the ledger.
func (s *Service) Reconcile(ctx context.Context, limit int) (ReconcileResult, error) {
	var result ReconcileResult

	now := s.now()
	intents, err := s.votes.ListExpiredIntents(ctx, now, limit)
	if err != nil {
		return result, fmt.Errorf("listing expired intents: %w", err)
	}

	for i := range intents {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		intent := intents[i]

		ok, err := s.votes.AcquireLease(ctx, intent.ID, now, now.Add(s.leaseTTL))
		if err != nil {
			result.Failed++
			s.logWarn(ctx, "acquiring intent lease failed", "intent_id", intent.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		proj, err := s.projects.Get(ctx, intent.ProjectID)
		if err != nil {
			result.Failed++
			s.release(ctx, intent.ID, err)
			continue
		}

		_, err = s.settle(ctx, proj, &intent)
		switch {
		case err == nil:
			result.Settled++
		case errors.Is(err, ErrLedgerRejected):
			result.Abandoned++
		default:
			result.Failed++
		}
	}

	if s.logger != nil && len(intents) > 0 {
		s.logger.InfoContext(ctx, "reconciled pending votes",
			"settled", result.Settled, "abandoned", result.Abandoned, "failed", result.Failed)
	}
	return result, nil
}

// claim reserves the (voter, project) slot, or takes over an abandoned
// attempt whose lease ran out.
func (s *Service) claim(ctx context.Context, voterID, projectID string) (*Intent, error) {
	now := s.now()
	nonce, err := s.nonce()
	if err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	intent := &Intent{
		ID:         uuid.NewString(),
		VoterID:    voterID,
		ProjectID:  projectID,
		VoteHash:   ComputeHash(voterID, projectID, now, nonce),
		Nonce:      nonce,
		State:      IntentPending,
		LeaseUntil: now.Add(s.leaseTTL),
		CreatedAt:  now,
	}

	err = s.votes.ClaimIntent(ctx, intent)
	switch {
	case err == nil:
		return intent, nil
	case errors.Is(err, repository.ErrIntegrity):
		s.logError(ctx, "vote hash collision", "voter_id", voterID, "project_id", projectID, "vote_hash", intent.VoteHash)
		return nil, ErrIntegrityViolation
	case !errors.Is(err, repository.ErrDuplicate):
		return nil, fmt.Errorf("claiming vote: %w", err)
	}

	existing, err := s.votes.GetIntent(ctx, voterID, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The competing attempt was rejected and released its slot.
			return nil, ErrDuplicateVote
		}
		return nil, fmt.Errorf("loading vote intent: %w", err)
	}
	if existing.State == IntentRecorded {
		return nil, ErrDuplicateVote
	}

	ok, err := s.votes.AcquireLease(ctx, existing.ID, now, now.Add(s.leaseTTL))
	if err != nil {
		return nil, fmt.Errorf("acquiring intent lease: %w", err)
	}
	if !ok {
		return nil, ErrDuplicateVote
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "resuming pending vote", "intent_id", existing.ID, "attempts", existing.Attempts)
	}
	return existing, nil
}

// settle hands the intent to the ledger and commits the outcome locally.
func (s *Service) settle(ctx context.Context, proj *project.Project, intent *Intent) (*Vote, error) {
	txRef, err := s.ledger.RecordVote(ctx, proj.LedgerRef, intent.VoteHash, intent.VoterID)
	if err != nil {
		if errors.Is(err, ledger.ErrRejected) {
			if aerr := s.votes.AbandonIntent(context.WithoutCancel(ctx), intent.ID); aerr != nil {
				s.logError(ctx, "abandoning rejected intent failed", "intent_id", intent.ID, "error", aerr)
			}
			s.logWarn(ctx, "ledger rejected vote", "intent_id", intent.ID, "project_id", intent.ProjectID, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrLedgerRejected, err)
		}
		s.release(ctx, intent.ID, err)
		return nil, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}

	v := &Vote{
		ID:          uuid.NewString(),
		VoterID:     intent.VoterID,
		ProjectID:   intent.ProjectID,
		VoteHash:    intent.VoteHash,
		Nonce:       intent.Nonce,
		LedgerTxRef: txRef,
		CastAt:      intent.CreatedAt,
	}

	// The ledger already holds the vote; finish locally even if the caller left.
	if err := s.votes.Commit(context.WithoutCancel(ctx), intent.ID, v); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateVote
		case errors.Is(err, repository.ErrIntegrity):
			s.logError(ctx, "vote commit integrity failure", "intent_id", intent.ID, "vote_hash", v.VoteHash, "ledger_tx_ref", txRef, "error", err)
			return nil, ErrIntegrityViolation
		}
		s.release(ctx, intent.ID, err)
		return nil, fmt.Errorf("committing vote: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "vote recorded", "vote_id", v.ID, "project_id", v.ProjectID, "ledger_tx_ref", txRef)
	}
	return v, nil
}

func (s *Service) release(ctx context.Context, intentID string, cause error) {
	s.logWarn(ctx, "vote left pending", "intent_id", intentID, "error", cause)
	if err := s.votes.ReleaseIntent(context.WithoutCancel(ctx), intentID, s.now(), cause.Error()); err != nil {
		s.logError(ctx, "releasing intent failed", "intent_id", intentID, "error", err)
	}
}

func (s *Service) loadProject(ctx context.Context, id string) (*project.Project, error) {
	proj, err := s.projects.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func (s *Service) logError(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}
