package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/ledger"
	"github.com/rpggio/tally/internal/repository"
)

// Service handles project operations.
type Service struct {
	repo   Repository
	ledger Ledger
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, logger: logger}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

// UpdateRequest holds the fields to change; nil means unchanged.
type UpdateRequest struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *Status
}

// Create registers a project on the ledger and stores it as pending.
func (s *Service) Create(ctx context.Context, caller auth.Identity, req CreateRequest) (*Project, error) {
	if err := caller.Require(auth.RoleProjectManager, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" || req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, ErrInvalidInput
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, ErrInvalidInput
	}

	ref, err := s.ledger.RecordProject(ctx, req.Title)
	if err != nil {
		return nil, classifyLedgerError(err)
	}

	now := time.Now()
	proj := &Project{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ManagerID:   caller.UserID,
		Status:      StatusPending,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		LedgerRef:   ref,
		TotalVotes:  0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, proj); err != nil {
		if errors.Is(err, repository.ErrIntegrity) || errors.Is(err, repository.ErrDuplicate) {
			s.logError(ctx, "ledger reference collision", "ledger_ref", ref, "error", err)
			return nil, ErrIntegrityViolation
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	return proj, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// List returns all projects, newest first.
func (s *Service) List(ctx context.Context) ([]Project, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// Update changes project fields. Only the manager of record or an admin may
// update, and status changes follow the lifecycle table.
func (s *Service) Update(ctx context.Context, caller auth.Identity, id string, req UpdateRequest) (*Project, error) {
	if err := caller.Require(auth.RoleProjectManager, auth.RoleAdmin); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.ManagerID != caller.UserID && caller.Role != auth.RoleAdmin {
		return nil, fmt.Errorf("%w: not the project manager", auth.ErrForbidden)
	}

	updated := *current
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, ErrInvalidInput
		}
		updated.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.StartDate != nil {
		updated.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		updated.EndDate = *req.EndDate
	}
	if updated.EndDate.Before(updated.StartDate) {
		return nil, ErrInvalidInput
	}
	if req.Status != nil {
		if err := ValidateTransition(current.Status, *req.Status); err != nil {
			return nil, err
		}
		updated.Status = *req.Status
	}
	updated.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, &updated, current.Status); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrProjectNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("updating project: %w", err)
	}

	if updated.Status != current.Status && s.logger != nil {
		s.logger.Info("project status changed", "project_id", id, "from", current.Status, "to", updated.Status, "by", caller.UserID)
	}

	return &updated, nil
}

func (s *Service) logError(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}

func classifyLedgerError(err error) error {
	if errors.Is(err, ledger.ErrRejected) {
		return fmt.Errorf("%w: %w", ErrLedgerRejected, err)
	}
	return fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
}
