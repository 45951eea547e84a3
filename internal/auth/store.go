package auth

import (
	"context"
	"time"
)

// UserRepository is the persistence boundary for principals. The token
// service only reads from it; writes belong to the registration flow.
type UserRepository interface {
	Create(ctx context.Context, p *Principal) error
	Find(ctx context.Context, id string) (*Principal, error)
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	Update(ctx context.Context, p *Principal) error
}

// RevocationStore is an append-only record of revoked token ids.
//
// Revoke must be idempotent: inserting an already-present token id
// succeeds without surfacing a uniqueness violation. The expiry of the
// underlying token is stored alongside so an external sweep can prune
// entries that no longer gate anything.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
