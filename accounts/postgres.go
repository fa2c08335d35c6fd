package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the DDL for the accounts table. Callers own migration tooling;
// the store only assumes this shape exists.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            TEXT PRIMARY KEY,
    display_name  TEXT        NOT NULL,
    email         TEXT        NOT NULL,
    password_hash TEXT        NOT NULL,
    active        BOOLEAN     NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (email);
`

// pgPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore defines a public type used by authkit APIs.
//
// PGStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PGStore struct {
	pool pgPool
	now  func() time.Time
}

// NewPGStore describes the newpgstore operation and its observable behavior.
//
// NewPGStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewPGStore(pool pgPool) *PGStore {
	return &PGStore{
		pool: pool,
		now:  time.Now,
	}
}

// WithClock overrides the store's time source. Intended for tests.
func (s *PGStore) WithClock(now func() time.Time) *PGStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *PGStore) Create(ctx context.Context, acct Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, display_name, email, password_hash, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		acct.ID, acct.DisplayName, NormalizeEmail(acct.Email), acct.PasswordHash,
		acct.Active, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// GetByEmail describes the getbyemail operation and its observable behavior.
//
// GetByEmail may return an error when input validation, dependency calls, or security checks fail.
// GetByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *PGStore) GetByEmail(ctx context.Context, email string) (Account, error) {
	return s.get(ctx,
		`SELECT id, display_name, email, password_hash, active, created_at, updated_at
		 FROM accounts WHERE email = $1`,
		NormalizeEmail(email))
}

// GetByID describes the getbyid operation and its observable behavior.
//
// GetByID may return an error when input validation, dependency calls, or security checks fail.
// GetByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *PGStore) GetByID(ctx context.Context, id string) (Account, error) {
	return s.get(ctx,
		`SELECT id, display_name, email, password_hash, active, created_at, updated_at
		 FROM accounts WHERE id = $1`,
		id)
}

func (s *PGStore) get(ctx context.Context, query, arg string) (Account, error) {
	var acct Account
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&acct.ID, &acct.DisplayName, &acct.Email, &acct.PasswordHash,
		&acct.Active, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return acct, nil
}

// UpdatePasswordHash describes the updatepasswordhash operation and its observable behavior.
//
// UpdatePasswordHash may return an error when input validation, dependency calls, or security checks fail.
// UpdatePasswordHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *PGStore) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	return s.update(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, newHash)
}

// SetActive describes the setactive operation and its observable behavior.
//
// SetActive may return an error when input validation, dependency calls, or security checks fail.
// SetActive does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *PGStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.update(ctx,
		`UPDATE accounts SET active = $2, updated_at = $3 WHERE id = $1`,
		id, active)
}

func (s *PGStore) update(ctx context.Context, query, id string, value any) error {
	tag, err := s.pool.Exec(ctx, query, id, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
