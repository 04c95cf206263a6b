// Package auth defines the caller identity carried through every
// authorization decision and the bearer tokens that encode it.
package auth

import (
	"context"
	"errors"
)

// Role is a caller's permission tier.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleVoter          Role = "voter"
)

var (
	// ErrUnauthenticated indicates a missing, malformed or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller's role does not permit the action.
	ErrForbidden = errors.New("forbidden")
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleVoter:
		return true
	}
	return false
}

// Identity is the authenticated caller, produced once per request.
type Identity struct {
	UserID string `json:"id"`
	Role   Role   `json:"role"`
}

// IsZero reports whether no caller is set.
func (id Identity) IsZero() bool {
	return id.UserID == ""
}

// HasRole reports whether the identity holds one of roles.
func (id Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// CanManage reports whether the identity may create or administer projects.
func (id Identity) CanManage() bool {
	return id.HasRole(RoleProjectManager, RoleAdmin)
}

// Require returns ErrUnauthenticated for an empty identity and ErrForbidden
// when none of roles match. With no roles any authenticated caller passes.
func (id Identity) Require(roles ...Role) error {
	if id.IsZero() {
		return ErrUnauthenticated
	}
	if len(roles) == 0 || id.HasRole(roles...) {
		return nil
	}
	return ErrForbidden
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, if present.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && !id.IsZero()
}
