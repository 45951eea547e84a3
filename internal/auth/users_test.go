package auth_test

import (
	"context"
	"errors"
	"testing"

	"keyward.org/internal/auth"
	"keyward.org/internal/store/memory"
)

func newUsers(t *testing.T) *auth.Users {
	t.Helper()
	users, err := auth.NewUsers(memory.NewUserRepository())
	if err != nil {
		t.Fatalf("NewUsers: %v", err)
	}
	return users
}

func TestRegisterDefaults(t *testing.T) {
	users := newUsers(t)

	p, err := users.Register(context.Background(), "  New@Example.COM ", "pass", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected assigned id")
	}
	if p.Email != "new@example.com" {
		t.Fatalf("email not normalized: %q", p.Email)
	}
	if p.Role != auth.RoleGuest {
		t.Fatalf("expected guest default, got %q", p.Role)
	}
	if !p.Active || p.Verified {
		t.Fatalf("unexpected flags: active=%v verified=%v", p.Active, p.Verified)
	}
	if p.PasswordHash == "pass" || p.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newUsers(t)
	if _, err := users.Register(context.Background(), "u1@example.com", "pass", auth.RoleMember); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := users.Register(context.Background(), "u1@example.com", "other", auth.RoleMember); !errors.Is(err, auth.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	users := newUsers(t)
	cases := []struct {
		name     string
		email    string
		password string
		role     auth.Role
	}{
		{"missing email", "", "pass", auth.RoleMember},
		{"malformed email", "not-an-email", "pass", auth.RoleMember},
		{"missing password", "u1@example.com", "", auth.RoleMember},
		{"unknown role", "u1@example.com", "pass", auth.Role("owner")},
	}
	for _, tc := range cases {
		if _, err := users.Register(context.Background(), tc.email, tc.password, tc.role); !errors.Is(err, auth.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestUpdatePasswordRehashes(t *testing.T) {
	users := newUsers(t)
	p, err := users.Register(context.Background(), "u1@example.com", "old", auth.RoleMember)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	newPassword := "new"
	updated, err := users.Update(context.Background(), p.ID, auth.UserUpdate{Password: &newPassword})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PasswordHash == p.PasswordHash {
		t.Fatal("expected password hash to change")
	}
	if err := auth.VerifyPassword(updated.PasswordHash, "new"); err != nil {
		t.Fatalf("new password did not verify: %v", err)
	}
	if err := auth.VerifyPassword(updated.PasswordHash, "old"); err == nil {
		t.Fatal("old password still verifies")
	}
}

func TestUpdateEmail(t *testing.T) {
	users := newUsers(t)
	p, err := users.Register(context.Background(), "u1@example.com", "pass", auth.RoleMember)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	email := "Renamed@Example.com"
	updated, err := users.Update(context.Background(), p.ID, auth.UserUpdate{Email: &email})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Email != "renamed@example.com" {
		t.Fatalf("email not normalized: %q", updated.Email)
	}
	if updated.ID != p.ID {
		t.Fatal("id must be immutable")
	}
}

func TestUpdateUnknownUser(t *testing.T) {
	users := newUsers(t)
	email := "u1@example.com"
	if _, err := users.Update(context.Background(), "missing", auth.UserUpdate{Email: &email}); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
