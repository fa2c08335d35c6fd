package authkit

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/parley-chat/authkit/accounts"
	"github.com/parley-chat/authkit/internal/limiters"
	"github.com/parley-chat/authkit/internal/stores"
)

// Login checks the password for the account behind email and, on a match,
// issues an emailed OTP gating the session. It never returns a session
// directly; the caller must follow up with [Engine.VerifyLoginOTP].
//
// Unlike the password-reset request, Login reports bad credentials
// explicitly with [ErrInvalidCredentials]. That asymmetry is deliberate
// product policy: a login form needs an actionable failure, and registration
// already discloses address existence through [ErrDuplicateEmail].
func (e *Engine) Login(ctx context.Context, email, plaintextPassword string) (*LoginResult, error) {
	if e.accountStore == nil || e.hasher == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}

	normalized := accounts.NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if err := e.throttle.Check(ctx, throttleScopeLogin, normalized, ip); err != nil {
		if errors.Is(err, limiters.ErrThrottled) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventRateLimited, false, "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"email": maskEmail(normalized),
					"scope": throttleScopeLogin,
				}
			})
			return nil, ErrLoginRateLimited
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if plaintextPassword == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  maskEmail(normalized),
				"reason": "empty_password",
			}
		})
		return nil, ErrInvalidCredentials
	}

	acct, err := e.accountStore.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"email":  maskEmail(normalized),
					"reason": "unknown_email",
				}
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	ok, err := e.hasher.Verify(plaintextPassword, acct.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, acct.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}
	if !acct.Active {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, acct.ID, ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, uerr := e.hasher.NeedsUpgrade(acct.PasswordHash); uerr == nil && needsUpgrade {
			if upgradedHash, herr := e.hasher.Hash(plaintextPassword); herr == nil {
				// Rehash update is best-effort and must not block the login.
				if uerr := e.accountStore.UpdatePasswordHash(ctx, acct.ID, upgradedHash); uerr != nil {
					log.Print("authkit: password hash upgrade update failed")
				}
			} else {
				log.Print("authkit: password hash upgrade generation failed")
			}
		}
	}
	plaintextPassword = ""

	if err := e.issueOTPChallenge(ctx, stores.KindLoginOTP, acct, e.config.Notify.LoginSubject); err != nil {
		return nil, err
	}

	return &LoginResult{
		OTPRequired:  true,
		MaskedTarget: maskEmail(acct.Email),
	}, nil
}

// VerifyLoginOTP completes a login by checking the emailed code. Success
// consumes the challenge and returns a signed session token; a wrong code
// burns one attempt and leaves the challenge pending; expiry or an exhausted
// attempt budget purges it, after which even the correct code finds
// [ErrNoPendingChallenge].
func (e *Engine) VerifyLoginOTP(ctx context.Context, email, code string) (string, error) {
	if e.accountStore == nil || e.hasher == nil || e.challenges == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}

	normalized := accounts.NormalizeEmail(email)
	acct, err := e.accountStore.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return "", ErrNoPendingChallenge
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !acct.Active {
		// Deactivated mid-flow: drop whatever is pending and refuse.
		_, _ = e.challenges.Delete(ctx, stores.KindLoginOTP, acct.ID)
		return "", ErrAccountInactive
	}

	if err := e.verifyChallenge(ctx, stores.KindLoginOTP, acct.ID, code, e.config.OTP.MaxAttempts); err != nil {
		e.emitAudit(ctx, auditEventOTPVerify, false, acct.ID, err, func() map[string]string {
			return map[string]string{
				"kind": challengeKindLabel(stores.KindLoginOTP),
			}
		})
		return "", err
	}

	token, err := e.tokens.Issue(acct.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricOTPVerified)
	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventOTPVerify, true, acct.ID, nil, func() map[string]string {
		return map[string]string{
			"kind": challengeKindLabel(stores.KindLoginOTP),
		}
	})
	e.emitAudit(ctx, auditEventSessionIssued, true, acct.ID, nil, nil)
	return token, nil
}
