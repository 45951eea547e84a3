// Package pg implements the auth storage interfaces on PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"keyward.org/internal/auth"
	"keyward.org/internal/ids"
)

const uniqueViolation = "23505"

// Store holds the shared connection pool. It implements both
// auth.UserRepository and auth.RevocationStore.
type Store struct {
	db *sql.DB
}

var (
	_ auth.UserRepository  = (*Store)(nil)
	_ auth.RevocationStore = (*Store)(nil)
)

// Open connects to PostgreSQL and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle (used by tests and cmd/migrate).
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Users -------------------------------------------------------------------

func (s *Store) Create(ctx context.Context, p *auth.Principal) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, email, password_hash, role, active, verified, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.Email, p.PasswordHash, string(p.Role), p.Active, p.Verified, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return auth.ErrDuplicateEmail
	}
	return err
}

func (s *Store) Find(ctx context.Context, id string) (*auth.Principal, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, role, active, verified, created_at, updated_at
		from users where id=$1`, id)
	return scanPrincipal(row)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, role, active, verified, created_at, updated_at
		from users where email=$1`, email)
	return scanPrincipal(row)
}

func (s *Store) Update(ctx context.Context, p *auth.Principal) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set email=$2, password_hash=$3, role=$4, active=$5, verified=$6, updated_at=$7
		where id=$1`,
		p.ID, p.Email, p.PasswordHash, string(p.Role), p.Active, p.Verified, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return auth.ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func scanPrincipal(row *sql.Row) (*auth.Principal, error) {
	var (
		p    auth.Principal
		role string
	)
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &role, &p.Active, &p.Verified, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Role = auth.Role(role)
	return &p, nil
}

// Revocations --------------------------------------------------------------

// Revoke inserts the token id into the blacklist. The on-conflict clause
// makes re-revocation a no-op instead of a uniqueness violation.
func (s *Store) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		insert into revoked_tokens(token_id, revoked_at, expires_at)
		values ($1, now(), $2)
		on conflict (token_id) do nothing`,
		tokenID, expiresAt,
	)
	return err
}

func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from revoked_tokens where token_id=$1)`, tokenID,
	).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// PurgeExpired removes blacklist rows whose underlying token has passed
// its natural expiry. Intended for a periodic external sweep, never the
// request path.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from revoked_tokens where expires_at < $1`, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
