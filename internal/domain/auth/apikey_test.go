package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
)

func TestRequireUser(t *testing.T) {
	_, err := RequireUser(context.Background())
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	id, err := RequireUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
}

func TestRequireAdmin(t *testing.T) {
	customer := WithIdentity(context.Background(), Identity{UserID: "u1"})
	_, err := RequireAdmin(customer)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = RequireAdmin(context.Background())
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	admin := WithIdentity(context.Background(), Identity{UserID: "a1", IsAdmin: true})
	id, err := RequireAdmin(admin)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin)
}

func TestCanAccess(t *testing.T) {
	assert.True(t, Identity{UserID: "u1"}.CanAccess("u1"))
	assert.False(t, Identity{UserID: "u1"}.CanAccess("u2"))
	assert.True(t, Identity{UserID: "a1", IsAdmin: true}.CanAccess("u2"))
}

func TestAPIKeyInfoIdentity(t *testing.T) {
	info := &APIKeyInfo{UserID: "u1", Name: "Ann", KeyHash: "abc", IsAdmin: true}
	assert.Equal(t, Identity{UserID: "u1", Name: "Ann", IsAdmin: true}, info.Identity())
}

func TestHashKey(t *testing.T) {
	h := HashKey([]byte("pepper"), "secret-key")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKey([]byte("pepper"), "secret-key"))
	assert.NotEqual(t, h, HashKey([]byte("other"), "secret-key"))
	assert.NotEqual(t, h, HashKey([]byte("pepper"), "secret-key2"))

	assert.True(t, KeyMatches(h, h))
	assert.False(t, KeyMatches(h, HashKey([]byte("pepper"), "nope")))
	assert.False(t, KeyMatches(h, "not-hex"))
}
