package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two cases are never distinguished to avoid user enumeration.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken covers malformed, unsigned, expired and wrong-type
	// tokens with a single outcome so callers cannot probe which check failed.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrRevoked marks a token whose id is present in the revocation store.
	ErrRevoked = errors.New("auth: token revoked")

	// ErrPrincipalNotFound means a verified token references a subject
	// that no longer resolves, e.g. a deleted account.
	ErrPrincipalNotFound = errors.New("auth: principal not found")

	// ErrForbidden is a valid identity with an insufficient role.
	ErrForbidden = errors.New("auth: insufficient role")

	// ErrDuplicateEmail rejects registration against an existing email.
	ErrDuplicateEmail = errors.New("auth: email already registered")

	ErrNotFound     = errors.New("auth: not found")
	ErrInvalidInput = errors.New("auth: invalid input")
)
