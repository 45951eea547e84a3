package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"keyward.org/internal/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestCreateUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into users").
		WithArgs("u-1", "u1@example.com", "hash", "member", true, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Create(context.Background(), &auth.Principal{
		ID:           "u-1",
		Email:        "u1@example.com",
		PasswordHash: "hash",
		Role:         auth.RoleMember,
		Active:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := store.Create(context.Background(), &auth.Principal{
		ID:    "u-1",
		Email: "u1@example.com",
	})
	if !errors.Is(err, auth.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "active", "verified", "created_at", "updated_at"}).
		AddRow("u-1", "u1@example.com", "hash", "admin", true, true, now, now)
	mock.ExpectQuery("select .* from users where email").
		WithArgs("u1@example.com").
		WillReturnRows(rows)

	p, err := store.FindByEmail(context.Background(), "u1@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if p.ID != "u-1" || p.Role != auth.RoleAdmin {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from users where id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &auth.Principal{ID: "missing"})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeIdempotent(t *testing.T) {
	store, mock := newMockStore(t)
	expires := time.Now().Add(time.Hour)

	mock.ExpectExec("insert into revoked_tokens").
		WithArgs("jti-1", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second insert hits the conflict clause: zero rows, no error.
	mock.ExpectExec("insert into revoked_tokens").
		WithArgs("jti-1", expires).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Revoke(context.Background(), "jti-1", expires); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := store.Revoke(context.Background(), "jti-1", expires); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIsRevoked(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select exists").
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("select exists").
		WithArgs("jti-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	revoked, err := store.IsRevoked(context.Background(), "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected jti-1 revoked, got %v err=%v", revoked, err)
	}
	revoked, err = store.IsRevoked(context.Background(), "jti-2")
	if err != nil || revoked {
		t.Fatalf("expected jti-2 absent, got %v err=%v", revoked, err)
	}
}

func TestPurgeExpired(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec("delete from revoked_tokens where expires_at").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	purged, err := store.PurgeExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 3 {
		t.Fatalf("expected 3 purged rows, got %d", purged)
	}
}
