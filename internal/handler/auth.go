package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

// Authenticator resolves the api_key header into an auth.Identity.
type Authenticator struct {
	keys   auth.Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator that hashes keys with pepper
// before looking them up.
func NewAuthenticator(keys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Middleware attaches the caller identity to the request context. Requests
// without a key pass through anonymously and are rejected later by
// operations that need a user; a key that does not match is rejected here.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		hash := auth.HashKey(a.pepper, key)
		info, err := a.keys.FindByHash(r.Context(), hash)
		switch {
		case apperr.IsNotFound(err):
			writeError(w, r, apperr.ErrUnauthenticated)
			return
		case err != nil:
			writeError(w, r, err)
			return
		}
		// The lookup matched on the hash; compare anyway so a repository
		// returning the wrong row cannot authenticate the caller.
		if !auth.KeyMatches(hash, info.KeyHash) {
			writeError(w, r, apperr.ErrUnauthenticated)
			return
		}

		id := info.Identity()
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = zctx.With(ctx, zap.String("user_id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
