package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Service orchestrates credential verification, token issuance and
// authorization decisions. It holds no mutable state of its own: all
// durable reads and writes go through the injected repositories, and
// the only write it ever performs is the idempotent revocation insert.
type Service struct {
	users       UserRepository
	revocations RevocationStore
	codec       *Codec
	now         func() time.Time
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the token service to its collaborators.
func NewService(users UserRepository, revocations RevocationStore, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("user repository is required")
	}
	if revocations == nil {
		return nil, errors.New("revocation store is required")
	}
	if codec == nil {
		return nil, errors.New("token codec is required")
	}
	svc := &Service{
		users:       users,
		revocations: revocations,
		codec:       codec,
		now:         time.Now,
		accessTTL:   defaultAccessTTL,
		refreshTTL:  defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Authenticate checks an email/password pair against the stored
// principal. Unknown email, wrong password and a disabled account all
// return ErrInvalidCredentials; callers cannot tell the cases apart.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssuePair mints an access/refresh token pair for the principal. Both
// tokens carry the same subject and distinct jtis. Issuance is pure
// generation: nothing is persisted until a token is revoked.
func (s *Service) IssuePair(principalID string) (TokenPair, error) {
	access, accessClaims, err := s.codec.Encode(principalID, TokenAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshClaims, err := s.codec.Encode(principalID, TokenRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// RedeemRefresh exchanges a valid refresh token for a fresh access
// token. The refresh token is not rotated: redemption leaves it usable
// until expiry or explicit revocation.
func (s *Service) RedeemRefresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}
	if claims.TokenType != TokenRefresh {
		return "", ErrInvalidToken
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrRevoked
	}
	access, _, err := s.codec.Encode(claims.Subject, TokenAccess, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Revoke permanently invalidates the presented token by blacklisting
// its jti. Revocation is terminal and keyed by token id, so re-issuing
// a token for the same subject is unaffected. Calling Revoke twice for
// the same token succeeds both times.
func (s *Service) Revoke(ctx context.Context, token string) error {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return ErrInvalidToken
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Authorize resolves the principal behind an access token and enforces
// the required-role set. Check order matters: token validity and
// revocation first (authentication, uniform failure), then subject
// resolution, then the role predicate (authorization, may be explicit).
// An empty role set only requires a valid authenticated principal.
func (s *Service) Authorize(ctx context.Context, token string, roles ...Role) (*Principal, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenAccess {
		return nil, ErrInvalidToken
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	user, err := s.users.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidToken
	}
	if !user.Role.In(roles...) {
		return nil, ErrForbidden
	}
	return user, nil
}
