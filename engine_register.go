package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/parley-chat/authkit/accounts"
)

// Register creates an active account with the given display name, email, and
// password. The email is normalized (trimmed, lower-cased) before the
// uniqueness check, so "Ann@X.com" and "ann@x.com" are the same identity.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, name, email, plaintextPassword string) (*Account, error) {
	if e.accountStore == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: display name required", ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(plaintextPassword) < e.config.Password.MinLength {
		return nil, fmt.Errorf("%w: password must be at least %d bytes", ErrValidation, e.config.Password.MinLength)
	}

	hash, err := e.hasher.Hash(plaintextPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	plaintextPassword = ""

	now := e.now().UTC()
	acct := accounts.Account{
		ID:           uuid.NewString(),
		DisplayName:  name,
		Email:        accounts.NormalizeEmail(email),
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.accountStore.Create(ctx, acct); err != nil {
		if errors.Is(err, accounts.ErrDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegister, false, "", ErrDuplicateEmail, func() map[string]string {
				return map[string]string{
					"email": maskEmail(acct.Email),
				}
			})
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, acct.ID, nil, nil)
	return &acct, nil
}
