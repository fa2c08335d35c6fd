package accounts

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrDuplicateEmail is an exported constant or variable used by the account stores.
	ErrDuplicateEmail = errors.New("account email already registered")
	// ErrNotFound is an exported constant or variable used by the account stores.
	ErrNotFound = errors.New("account not found")
	// ErrBackend is an exported constant or variable used by the account stores.
	ErrBackend = errors.New("account backend unavailable")
)

// Account is the persisted credential record for one chat user. Email is
// stored normalized and uniquely identifies the account. PasswordHash is an
// argon2id PHC string; no plaintext secret is ever persisted.
type Account struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store defines a public type used by authkit APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store interface {
	// Create persists a new account. It fails with ErrDuplicateEmail when the
	// normalized email is already taken.
	Create(ctx context.Context, acct Account) error
	// GetByEmail looks up an account by normalized email. It fails with
	// ErrNotFound when no account exists.
	GetByEmail(ctx context.Context, email string) (Account, error)
	// GetByID looks up an account by id. It fails with ErrNotFound when no
	// account exists.
	GetByID(ctx context.Context, id string) (Account, error)
	// UpdatePasswordHash atomically replaces the stored password hash and
	// bumps UpdatedAt.
	UpdatePasswordHash(ctx context.Context, id, newHash string) error
	// SetActive atomically flips the active flag.
	SetActive(ctx context.Context, id string, active bool) error
}

// NormalizeEmail describes the normalizeemail operation and its observable behavior.
//
// NormalizeEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
