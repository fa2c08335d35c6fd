package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/parley-chat/authkit/accounts"
	"github.com/parley-chat/authkit/internal/stores"
)

// GetAccount looks up an account by id. It is a read-through to the
// configured store; no challenge or session state is consulted.
func (e *Engine) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	if e.accountStore == nil {
		return nil, ErrEngineNotReady
	}

	acct, err := e.accountStore.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, accounts.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return &acct, nil
}

// DeactivateAccount flips the account inactive and purges every pending
// challenge it owns. Sessions already issued stay valid until they expire;
// stateless tokens cannot be recalled, but no new session or reset can start.
func (e *Engine) DeactivateAccount(ctx context.Context, accountID string) error {
	err := e.setAccountActive(ctx, accountID, false)
	if err == nil {
		for _, kind := range []stores.Kind{stores.KindLoginOTP, stores.KindResetOTP, stores.KindResetToken} {
			_, _ = e.challenges.Delete(ctx, kind, accountID)
		}
	}
	e.emitAudit(ctx, auditEventAccountStatus, err == nil, accountID, err, func() map[string]string {
		return map[string]string{
			"action": "deactivate",
		}
	})
	return err
}

// ReactivateAccount flips the account active again. Nothing pending is
// restored; the user starts fresh flows.
func (e *Engine) ReactivateAccount(ctx context.Context, accountID string) error {
	err := e.setAccountActive(ctx, accountID, true)
	e.emitAudit(ctx, auditEventAccountStatus, err == nil, accountID, err, func() map[string]string {
		return map[string]string{
			"action": "reactivate",
		}
	})
	return err
}

func (e *Engine) setAccountActive(ctx context.Context, accountID string, active bool) error {
	if e.accountStore == nil {
		return ErrEngineNotReady
	}

	if err := e.accountStore.SetActive(ctx, accountID, active); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return accounts.ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// ChangePassword replaces the password of an authenticated account. The
// current password re-authenticates the request; this path never touches
// the reset flow and does not disturb its challenges.
func (e *Engine) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if e.accountStore == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	if len(newPassword) < e.config.Password.MinLength {
		return fmt.Errorf("%w: password must be at least %d bytes", ErrValidation, e.config.Password.MinLength)
	}

	acct, err := e.accountStore.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !acct.Active {
		return ErrAccountInactive
	}

	ok, err := e.hasher.Verify(currentPassword, acct.PasswordHash)
	if err != nil || !ok {
		e.emitAudit(ctx, auditEventPasswordChange, false, acct.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return ErrInvalidCredentials
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	newPassword = ""

	if err := e.accountStore.UpdatePasswordHash(ctx, acct.ID, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordChange, false, acct.ID, err, nil)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.emitAudit(ctx, auditEventPasswordChange, true, acct.ID, nil, nil)
	return nil
}
