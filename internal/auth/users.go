package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"keyward.org/internal/ids"
)

// Users owns the registration and profile-update flow. It shares the
// Principal model with the token service but writes through the
// repository, which the service never does.
type Users struct {
	repo UserRepository
	now  func() time.Time
}

// NewUsers constructs the user management flow.
func NewUsers(repo UserRepository, opts ...UsersOption) (*Users, error) {
	if repo == nil {
		return nil, errors.New("user repository is required")
	}
	u := &Users{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// UsersOption configures Users construction.
type UsersOption func(*Users)

// WithUsersClock overrides the time source (useful for tests).
func WithUsersClock(fn func() time.Time) UsersOption {
	return func(u *Users) {
		if fn != nil {
			u.now = fn
		}
	}
}

// UserUpdate carries optional profile changes; nil fields are untouched.
type UserUpdate struct {
	Email    *string
	Password *string
}

// Register creates a principal with a hashed password. An empty role
// defaults to guest. Duplicate emails surface as ErrDuplicateEmail.
func (u *Users) Register(ctx context.Context, email, password string, role Role) (*Principal, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if role == "" {
		role = RoleGuest
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := u.now().UTC()
	principal := &Principal{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.repo.Create(ctx, principal); err != nil {
		return nil, err
	}
	return principal, nil
}

// Get loads a principal by id.
func (u *Users) Get(ctx context.Context, id string) (*Principal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return u.repo.Find(ctx, id)
}

// Update applies the non-nil fields of upd to the principal. A password
// change re-hashes with a fresh salt.
func (u *Users) Update(ctx context.Context, id string, upd UserUpdate) (*Principal, error) {
	user, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if upd.Password != nil {
		if strings.TrimSpace(*upd.Password) == "" {
			return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = u.now().UTC()
	if err := u.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}
