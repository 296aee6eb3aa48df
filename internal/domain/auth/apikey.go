// Package auth carries the caller identity supplied by the authentication
// provider. The rest of the domain trusts it as given.
package auth

import (
	"context"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID  string
	Name    string
	IsAdmin bool
}

// APIKeyInfo is the stored record matched by an API key hash.
type APIKeyInfo struct {
	UserID  string
	Name    string
	KeyHash string
	IsAdmin bool
}

// Identity converts the stored record to a caller identity.
func (i *APIKeyInfo) Identity() Identity {
	return Identity{UserID: i.UserID, Name: i.Name, IsAdmin: i.IsAdmin}
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireUser returns the caller identity or apperr.ErrUnauthenticated.
func RequireUser(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok || id.UserID == "" {
		return Identity{}, apperr.ErrUnauthenticated
	}
	return id, nil
}

// RequireAdmin returns the caller identity if it has the admin role.
func RequireAdmin(ctx context.Context) (Identity, error) {
	id, err := RequireUser(ctx)
	if err != nil {
		return Identity{}, err
	}
	if !id.IsAdmin {
		return Identity{}, apperr.ErrForbidden
	}
	return id, nil
}

// CanAccess reports whether id may read a resource owned by ownerID.
func (id Identity) CanAccess(ownerID string) bool {
	return id.IsAdmin || id.UserID == ownerID
}
