// Package redis stores session carts in Redis.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/hungrypanda/internal/domain/cart"
)

// DefaultCartTTL is how long an untouched cart survives.
const DefaultCartTTL = 7 * 24 * time.Hour

const maxUpdateAttempts = 50

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store on a Redis client.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore returns a CartStore. A non-positive ttl selects DefaultCartTTL.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(session string) string {
	return "cart:" + session
}

// Get returns cart.ErrNoSnapshot when nothing is stored for session.
func (s *CartStore) Get(ctx context.Context, session string) ([]byte, error) {
	b, err := s.client.Get(ctx, cartKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNoSnapshot
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	return b, nil
}

// Update runs fn inside a WATCH/MULTI transaction on the cart key and
// retries when another client wrote the key in between. Successful writes
// refresh the TTL.
func (s *CartStore) Update(ctx context.Context, session string, fn func([]byte) ([]byte, error)) error {
	key := cartKey(session)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			data = nil
		case err != nil:
			return errors.Wrap(err, "redis get")
		}

		next, err := fn(data)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if next == nil {
				p.Del(ctx, key)
				return nil
			}
			p.Set(ctx, key, next, s.ttl)
			return nil
		})
		return err
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errors.Errorf("cart %s: too many concurrent updates", session)
}

// Delete removes the snapshot. Deleting a missing key is not an error.
func (s *CartStore) Delete(ctx context.Context, session string) error {
	if err := s.client.Del(ctx, cartKey(session)).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

// Ping checks the connection; it backs the readiness check.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}
