package user

import (
	"context"

	"github.com/rpggio/tally/internal/auth"
)

// Repository provides persistence for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// TokenIssuer signs bearer tokens for an identity.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}
