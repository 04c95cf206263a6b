package user_test

import (
	"context"
	"testing"

	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/user"
	"github.com/rpggio/tally/internal/repository"
	"github.com/rpggio/tally/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(repo *mocks.UserRepository, tokens *mocks.TokenIssuer) *user.Service {
	return user.NewService(repo, tokens, nil).WithHashCost(bcrypt.MinCost)
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.UserRepository{}
	repo.On("Create", ctx, mock.AnythingOfType("*user.User")).Return(nil)
	svc := newUserService(repo, &mocks.TokenIssuer{})

	u, err := svc.Register(ctx, user.RegisterRequest{
		Name:     " Grace ",
		Email:    "Grace@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "Grace", u.Name)
	require.Equal(t, "grace@example.com", u.Email)
	require.Equal(t, auth.RoleVoter, u.Role)
	require.NotEqual(t, "correct horse", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))
}

func TestUserService_Register_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(&mocks.UserRepository{}, &mocks.TokenIssuer{})

	cases := map[string]user.RegisterRequest{
		"missing name":   {Email: "a@example.com", Password: "longenough"},
		"bad email":      {Name: "A", Email: "not-an-email", Password: "longenough"},
		"short password": {Name: "A", Email: "a@example.com", Password: "short"},
		"admin role":     {Name: "A", Email: "a@example.com", Password: "longenough", Role: auth.RoleAdmin},
		"unknown role":   {Name: "A", Email: "a@example.com", Password: "longenough", Role: "auditor"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, req)
			require.ErrorIs(t, err, user.ErrInvalidInput)
		})
	}
}

func TestUserService_Register_EmailTaken(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.UserRepository{}
	repo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)
	svc := newUserService(repo, &mocks.TokenIssuer{})

	_, err := svc.Register(ctx, user.RegisterRequest{Name: "A", Email: "a@example.com", Password: "longenough", Role: auth.RoleProjectManager})
	require.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &user.User{ID: "u1", Email: "a@example.com", PasswordHash: string(hash), Role: auth.RoleVoter}

	repo := &mocks.UserRepository{}
	repo.On("GetByEmail", ctx, "a@example.com").Return(stored, nil)
	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrNotFound)
	tokens := &mocks.TokenIssuer{}
	tokens.On("Issue", auth.Identity{UserID: "u1", Role: auth.RoleVoter}).Return("signed", nil)
	svc := newUserService(repo, tokens)

	u, token, err := svc.Login(ctx, "A@example.com", "longenough")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, "signed", token)

	_, _, err = svc.Login(ctx, "a@example.com", "wrong password")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "ghost@example.com", "longenough")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when missing", func(t *testing.T) {
		repo := &mocks.UserRepository{}
		repo.On("GetByEmail", ctx, "root@example.com").Return(nil, repository.ErrNotFound)
		repo.On("Create", ctx, mock.MatchedBy(func(u *user.User) bool { return u.Role == auth.RoleAdmin })).Return(nil)
		svc := newUserService(repo, &mocks.TokenIssuer{})

		u, err := svc.EnsureAdmin(ctx, "root@example.com", "supersecret")
		require.NoError(t, err)
		require.Equal(t, auth.RoleAdmin, u.Role)
		repo.AssertExpectations(t)
	})

	t.Run("keeps existing", func(t *testing.T) {
		existing := &user.User{ID: "admin", Email: "root@example.com", Role: auth.RoleAdmin}
		repo := &mocks.UserRepository{}
		repo.On("GetByEmail", ctx, "root@example.com").Return(existing, nil)
		svc := newUserService(repo, &mocks.TokenIssuer{})

		u, err := svc.EnsureAdmin(ctx, "root@example.com", "supersecret")
		require.NoError(t, err)
		require.Equal(t, "admin", u.ID)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
