package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service handles registration and login.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	logger *slog.Logger
	cost   int
}

// NewService creates a new user service.
func NewService(repo Repository, tokens TokenIssuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// RegisterRequest defines registration inputs.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     auth.Role
}

// Register creates a voter or project manager account. Admins are only
// created through EnsureAdmin.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	role := req.Role
	if role == "" {
		role = auth.RoleVoter
	}
	if role != auth.RoleVoter && role != auth.RoleProjectManager {
		return nil, ErrInvalidInput
	}
	return s.create(ctx, req.Name, req.Email, req.Password, role)
}

// Login checks credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("loading user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.Identity())
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	return u, token, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin unless the email is registered.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	existing, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loading admin: %w", err)
	}

	u, err := s.create(ctx, "Administrator", email, password, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("bootstrap admin created", "user_id", u.ID, "email", u.Email)
	}
	return u, nil
}

func (s *Service) create(ctx context.Context, name, email, password string, role auth.Role) (*User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || !validEmail(email) || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
