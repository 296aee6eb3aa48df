package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/auth"
)

const (
	findUserByKeyHashSQL = `SELECT id, name, api_key_hash, is_admin
		FROM users WHERE api_key_hash = $1`

	upsertUserSQL = `INSERT INTO users (id, name, email, is_admin, api_key_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, is_admin = EXCLUDED.is_admin, api_key_hash = EXCLUDED.api_key_hash`
)

var _ auth.Repository = (*UserRepository)(nil)

// User is a stored account. Only the HMAC of its API key is kept.
type User struct {
	ID         string
	Name       string
	Email      string
	IsAdmin    bool
	APIKeyHash string
}

// UserRepository provides user and API key lookups backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByHash looks up a user by the HMAC-SHA256 hash of their API key.
func (r *UserRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	rows, err := r.pool.Query(ctx, findUserByKeyHashSQL, hash)
	if err != nil {
		return nil, apperr.Transient("find api key", err)
	}
	info, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.APIKeyInfo, error) {
		var i auth.APIKeyInfo
		err := row.Scan(&i.UserID, &i.Name, &i.KeyHash, &i.IsAdmin)
		return i, err
	})
	if err != nil {
		return nil, lookupError(err, "api key", "")
	}
	return &info, nil
}

// Upsert creates the user or updates the one with the same email.
func (r *UserRepository) Upsert(ctx context.Context, u User) error {
	if _, err := r.pool.Exec(ctx, upsertUserSQL, u.ID, u.Name, u.Email, u.IsAdmin, u.APIKeyHash); err != nil {
		return apperr.Transient("upsert user", err)
	}
	return nil
}
