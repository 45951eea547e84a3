// Package redis implements the revocation store on Redis. Entries are
// keyed by jti and expire together with the underlying token, so the
// blacklist prunes itself without an external sweep.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"keyward.org/internal/auth"
)

const keyPrefix = "keyward:revoked:"

// minTTL keeps a record around briefly even when the token is already
// past expiry, so a revoke racing the clock still lands.
const minTTL = time.Minute

// RevocationStore is a Redis-backed auth.RevocationStore.
type RevocationStore struct {
	client goredis.UniversalClient
	now    func() time.Time
}

var _ auth.RevocationStore = (*RevocationStore)(nil)

// Option configures the store.
type Option func(*RevocationStore)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *RevocationStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewRevocationStore wraps a Redis client.
func NewRevocationStore(client goredis.UniversalClient, opts ...Option) (*RevocationStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	s := &RevocationStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Revoke stores the token id with a TTL that covers the token's
// remaining life. SETNX makes repeated revocations a no-op.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl < minTTL {
		ttl = minTTL
	}
	return s.client.SetNX(ctx, keyPrefix+tokenID, s.now().UTC().Format(time.RFC3339), ttl).Err()
}

// IsRevoked checks for the token id; keys Redis has already expired
// read as absent, which is correct because the token itself is expired.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
