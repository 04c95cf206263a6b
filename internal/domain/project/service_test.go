package project_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/ledger"
	"github.com/rpggio/tally/internal/repository"
	"github.com/rpggio/tally/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	manager = auth.Identity{UserID: "pm1", Role: auth.RoleProjectManager}
	other   = auth.Identity{UserID: "pm2", Role: auth.RoleProjectManager}
	admin   = auth.Identity{UserID: "root", Role: auth.RoleAdmin}
	voter   = auth.Identity{UserID: "v1", Role: auth.RoleVoter}
)

func validCreate() project.CreateRequest {
	start := time.Now()
	return project.CreateRequest{Title: "Skate park", Description: "Concrete bowl", StartDate: start, EndDate: start.Add(48 * time.Hour)}
}

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	led := &mocks.Ledger{}
	led.On("RecordProject", ctx, "Skate park").Return("0xabc", nil)
	repo.On("Create", ctx, mock.AnythingOfType("*project.Project")).Return(nil)

	svc := project.NewService(repo, led, nil)
	proj, err := svc.Create(ctx, manager, validCreate())
	require.NoError(t, err)
	require.Equal(t, project.StatusPending, proj.Status)
	require.Equal(t, "0xabc", proj.LedgerRef)
	require.Equal(t, "pm1", proj.ManagerID)
	require.Zero(t, proj.TotalVotes)
}

func TestProjectService_Create_Authorization(t *testing.T) {
	svc := project.NewService(&mocks.ProjectRepository{}, &mocks.Ledger{}, nil)

	_, err := svc.Create(context.Background(), voter, validCreate())
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.Create(context.Background(), auth.Identity{}, validCreate())
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestProjectService_Create_Validation(t *testing.T) {
	led := &mocks.Ledger{}
	svc := project.NewService(&mocks.ProjectRepository{}, led, nil)

	noTitle := validCreate()
	noTitle.Title = "  "
	backwards := validCreate()
	backwards.EndDate = backwards.StartDate.Add(-time.Hour)
	noDates := project.CreateRequest{Title: "x"}

	for _, req := range []project.CreateRequest{noTitle, backwards, noDates} {
		_, err := svc.Create(context.Background(), manager, req)
		require.ErrorIs(t, err, project.ErrInvalidInput)
	}
	led.AssertNotCalled(t, "RecordProject", mock.Anything, mock.Anything)
}

func TestProjectService_Create_LedgerFailures(t *testing.T) {
	ctx := context.Background()

	led := &mocks.Ledger{}
	led.On("RecordProject", ctx, "Skate park").Return("", ledger.ErrUnavailable).Once()
	led.On("RecordProject", ctx, "Skate park").Return("", ledger.ErrRejected).Once()
	repo := &mocks.ProjectRepository{}
	svc := project.NewService(repo, led, nil)

	_, err := svc.Create(ctx, manager, validCreate())
	require.ErrorIs(t, err, project.ErrLedgerUnavailable)

	_, err = svc.Create(ctx, manager, validCreate())
	require.ErrorIs(t, err, project.ErrLedgerRejected)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProjectService_Create_RefCollision(t *testing.T) {
	ctx := context.Background()
	led := &mocks.Ledger{}
	led.On("RecordProject", ctx, "Skate park").Return("0xabc", nil)
	repo := &mocks.ProjectRepository{}
	repo.On("Create", ctx, mock.Anything).Return(repository.ErrIntegrity)

	_, err := project.NewService(repo, led, nil).Create(ctx, manager, validCreate())
	require.ErrorIs(t, err, project.ErrIntegrityViolation)
}

func TestProjectService_Get(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	_, err := project.NewService(repo, &mocks.Ledger{}, nil).Get(ctx, "missing")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestProjectService_Update(t *testing.T) {
	ctx := context.Background()
	stored := func() *project.Project {
		return &project.Project{ID: "p1", Title: "Old", ManagerID: "pm1", Status: project.StatusPending,
			StartDate: time.Now(), EndDate: time.Now().Add(time.Hour)}
	}
	active := project.StatusActive
	title := "New"

	t.Run("manager activates", func(t *testing.T) {
		repo := &mocks.ProjectRepository{}
		repo.On("Get", ctx, "p1").Return(stored(), nil)
		repo.On("Update", ctx, mock.MatchedBy(func(p *project.Project) bool {
			return p.Status == project.StatusActive && p.Title == "New"
		}), project.StatusPending).Return(nil)

		proj, err := project.NewService(repo, &mocks.Ledger{}, nil).Update(ctx, manager, "p1", project.UpdateRequest{Title: &title, Status: &active})
		require.NoError(t, err)
		require.Equal(t, project.StatusActive, proj.Status)
		repo.AssertExpectations(t)
	})

	t.Run("admin may update any project", func(t *testing.T) {
		repo := &mocks.ProjectRepository{}
		repo.On("Get", ctx, "p1").Return(stored(), nil)
		repo.On("Update", ctx, mock.Anything, project.StatusPending).Return(nil)

		_, err := project.NewService(repo, &mocks.Ledger{}, nil).Update(ctx, admin, "p1", project.UpdateRequest{Status: &active})
		require.NoError(t, err)
	})

	t.Run("other manager is forbidden", func(t *testing.T) {
		repo := &mocks.ProjectRepository{}
		repo.On("Get", ctx, "p1").Return(stored(), nil)

		_, err := project.NewService(repo, &mocks.Ledger{}, nil).Update(ctx, other, "p1", project.UpdateRequest{Status: &active})
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("invalid transition", func(t *testing.T) {
		repo := &mocks.ProjectRepository{}
		repo.On("Get", ctx, "p1").Return(stored(), nil)
		completed := project.StatusCompleted

		_, err := project.NewService(repo, &mocks.Ledger{}, nil).Update(ctx, manager, "p1", project.UpdateRequest{Status: &completed})
		require.ErrorIs(t, err, project.ErrInvalidTransition)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent status change", func(t *testing.T) {
		repo := &mocks.ProjectRepository{}
		repo.On("Get", ctx, "p1").Return(stored(), nil)
		repo.On("Update", ctx, mock.Anything, project.StatusPending).Return(repository.ErrConflict)

		_, err := project.NewService(repo, &mocks.Ledger{}, nil).Update(ctx, manager, "p1", project.UpdateRequest{Status: &active})
		require.ErrorIs(t, err, project.ErrConflict)
	})

	t.Run("dates must stay ordered", func(t *testing.T) {
		repo := &mocks.ProjectRepository{}
		repo.On("Get", ctx, "p1").Return(stored(), nil)
		early := time.Now().Add(-24 * time.Hour)

		_, err := project.NewService(repo, &mocks.Ledger{}, nil).Update(ctx, manager, "p1", project.UpdateRequest{EndDate: &early})
		require.ErrorIs(t, err, project.ErrInvalidInput)
	})
}
