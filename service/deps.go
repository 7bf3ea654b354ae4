// Package service wires the domain to the dispatch core: the command
// handlers, the read-model projections, and the query-side views. All
// handlers share one dependency struct bound at bus construction; no
// dependency is discovered by reflection.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// PasswordHasher hashes and verifies credentials. Implementations live
// in the security package; tests may substitute a cheap fake.
type PasswordHasher interface {
	// Hash computes an encoded hash of the plaintext.
	Hash(plain string) (string, error)

	// Verify checks the plaintext against an encoded hash. A mismatch
	// returns an error wrapping ErrUnauthorized.
	Verify(encoded, plain string) error

	// NeedsRehash reports whether the encoded hash was produced with
	// outdated parameters and should be recomputed on next verify.
	NeedsRehash(encoded string) bool
}

// Claims carries the identity baked into an access token.
type Claims struct {
	Subject  uuid.UUID
	Email    string
	UserType domain.UserType
	Admin    bool
}

// TokenManager issues and validates the authentication tokens.
type TokenManager interface {
	// IssueAccessToken mints a short-lived access token.
	IssueAccessToken(c Claims) (string, error)

	// IssueRefreshToken mints a long-lived refresh token.
	IssueRefreshToken(userID uuid.UUID, userType domain.UserType) (string, error)

	// ValidateRefreshToken checks a refresh token and returns its
	// subject. Expired or malformed tokens fail with ErrTokenExpired or
	// ErrTokenInvalid.
	ValidateRefreshToken(token string) (uuid.UUID, error)
}

// Deps is the handler-dependency struct: one instance per bus, carrying
// the request's unit of work and the cross-cutting services. Cache is
// optional; projections use it to drop stale entries.
type Deps struct {
	UoW    domain.UnitOfWork
	Hasher PasswordHasher
	Tokens TokenManager
	Logger bugline.Logger
	Cache  ReadModelCache
}

func (d Deps) dropUser(ctx context.Context, id uuid.UUID) {
	if d.Cache != nil {
		d.Cache.DropUser(ctx, id)
	}
}

func (d Deps) dropBug(ctx context.Context, id uuid.UUID) {
	if d.Cache != nil {
		d.Cache.DropBug(ctx, id)
	}
}
