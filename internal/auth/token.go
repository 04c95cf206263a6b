package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the JWT payload.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewIssuer creates an Issuer. secret must not be empty.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, issuer: "tally", now: time.Now}, nil
}

// Issue returns a signed token for id.
func (i *Issuer) Issue(id Identity) (string, error) {
	if id.IsZero() || !id.Role.Valid() {
		return "", fmt.Errorf("issue token: invalid identity")
	}
	now := i.now()
	claims := Claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it carries.
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrUnauthenticated
	}
	if !claims.VerifyExpiresAt(i.now(), true) {
		return Identity{}, ErrUnauthenticated
	}
	id := Identity{UserID: claims.Subject, Role: claims.Role}
	if id.IsZero() || !id.Role.Valid() {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// ResolveIdentity implements the transport identity resolver.
func (i *Issuer) ResolveIdentity(_ context.Context, token string) (Identity, error) {
	return i.Verify(token)
}
