package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/parley-chat/authkit/accounts"
	"github.com/parley-chat/authkit/internal"
	"github.com/parley-chat/authkit/internal/limiters"
	"github.com/parley-chat/authkit/internal/stores"
)

// RequestPasswordReset starts reset phase one by emailing an OTP to the
// account. The response shape is identical for unknown, inactive, and
// registered emails — an unknown address gets a small random delay and a
// masked target derived from the input, nothing else — so the endpoint
// cannot be used to probe which addresses exist.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	if e.accountStore == nil || e.hasher == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	normalized := accounts.NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if err := e.throttle.Check(ctx, throttleScopeReset, normalized, ip); err != nil {
		if errors.Is(err, limiters.ErrThrottled) {
			e.metricInc(MetricResetRateLimited)
			e.emitAudit(ctx, auditEventRateLimited, false, "", ErrResetRateLimited, func() map[string]string {
				return map[string]string{
					"email": maskEmail(normalized),
					"scope": throttleScopeReset,
				}
			})
			return nil, ErrResetRateLimited
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	acct, err := e.accountStore.GetByEmail(ctx, normalized)
	if err != nil {
		if !errors.Is(err, accounts.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if derr := sleepEnumerationDelay(ctx); derr != nil {
			return nil, derr
		}
		e.metricInc(MetricResetRequest)
		e.emitAudit(ctx, auditEventResetRequest, true, "", nil, func() map[string]string {
			return map[string]string{
				"email":            maskEmail(normalized),
				"enumeration_safe": "true",
			}
		})
		return &ResetRequestResult{MaskedTarget: maskEmail(normalized)}, nil
	}

	if !acct.Active {
		// Same generic shape as the unknown-email path.
		if derr := sleepEnumerationDelay(ctx); derr != nil {
			return nil, derr
		}
		e.metricInc(MetricResetRequest)
		e.emitAudit(ctx, auditEventResetRequest, true, acct.ID, nil, func() map[string]string {
			return map[string]string{
				"noop": "inactive_account",
			}
		})
		return &ResetRequestResult{MaskedTarget: maskEmail(normalized)}, nil
	}

	if err := e.issueOTPChallenge(ctx, stores.KindResetOTP, acct, e.config.Notify.ResetSubject); err != nil {
		return nil, err
	}

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, acct.ID, nil, nil)
	return &ResetRequestResult{MaskedTarget: maskEmail(acct.Email)}, nil
}

// VerifyResetOTP completes reset phase one. A correct code consumes the OTP
// challenge and opens phase two: a bearer token is issued — a challenge id
// plus a random 32-byte secret, packed base64url — with only the secret's
// argon2 digest stored, and returned to be presented verbatim to
// [Engine.ResetPassword].
func (e *Engine) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	if e.accountStore == nil || e.hasher == nil || e.challenges == nil {
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

	if err := e.verifyChallenge(ctx, stores.KindResetOTP, acct.ID, code, e.config.OTP.MaxAttempts); err != nil {
		e.emitAudit(ctx, auditEventOTPVerify, false, acct.ID, err, func() map[string]string {
			return map[string]string{
				"kind": challengeKindLabel(stores.KindResetOTP),
			}
		})
		return "", err
	}

	challengeID, err := internal.NewChallengeID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	secret, err := internal.NewResetSecret()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	token, err := internal.EncodeResetToken(challengeID.String(), secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	digest, err := e.hasher.Hash(internal.EncodeResetSecret(secret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	now := e.now()
	record := &stores.ChallengeRecord{
		Kind:        stores.KindResetToken,
		AccountID:   acct.ID,
		Target:      acct.Email,
		Digest:      digest,
		ChallengeID: challengeID.String(),
		ExpiresAt:   now.Add(e.config.Reset.TokenTTL).Unix(),
		RequestedAt: now.Unix(),
		Attempts:    0,
	}
	if err := e.challenges.Save(ctx, record, e.config.Reset.TokenTTL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricOTPVerified)
	e.metricInc(MetricResetTokenIssued)
	e.emitAudit(ctx, auditEventOTPVerify, true, acct.ID, nil, func() map[string]string {
		return map[string]string{
			"kind": challengeKindLabel(stores.KindResetOTP),
		}
	})
	return token, nil
}

// ResetPassword finishes the flow: a valid phase-two token authorizes
// exactly one password change. The token is consumed before the hash is
// written, and any lingering reset-OTP state is cleared with it, so no
// reset state survives a completed change. Every token problem — wrong,
// expired, already used, attempt budget spent — collapses into
// [ErrResetTokenInvalid]; the caller restarts from the request step.
func (e *Engine) ResetPassword(ctx context.Context, email, resetToken, newPassword string) error {
	if e.accountStore == nil || e.hasher == nil || e.challenges == nil {
		return ErrEngineNotReady
	}

	// Policy check first: a weak password must not burn the token.
	if len(newPassword) < e.config.Password.MinLength {
		return fmt.Errorf("%w: password must be at least %d bytes", ErrValidation, e.config.Password.MinLength)
	}
	if resetToken == "" {
		return ErrResetTokenInvalid
	}

	normalized := accounts.NormalizeEmail(email)
	acct, err := e.accountStore.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if err := e.verifyResetToken(ctx, acct.ID, resetToken, e.config.Reset.MaxAttempts); err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, acct.ID, err, nil)
		if errors.Is(err, ErrBackendUnavailable) {
			return err
		}
		return ErrResetTokenInvalid
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	newPassword = ""

	if err := e.accountStore.UpdatePasswordHash(ctx, acct.ID, newHash); err != nil {
		// The token is already consumed; the user restarts from the request
		// step rather than retrying a half-trusted credential.
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, acct.ID, err, nil)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// No reset state may outlive the change.
	_, _ = e.challenges.Delete(ctx, stores.KindResetOTP, acct.ID)

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, acct.ID, nil, nil)
	return nil
}

// verifyResetToken is the bearer-token variant of the verification ladder.
// The token decodes to a challenge id and a secret; the id must name the
// exact stored record and the secret must match its digest. A malformed
// token, a stale id, and a wrong secret are indistinguishable to the caller
// and all burn an attempt.
func (e *Engine) verifyResetToken(ctx context.Context, accountID, token string, maxAttempts int) error {
	record, err := e.challenges.Get(ctx, stores.KindResetToken, accountID)
	if err != nil {
		return e.mapChallengeError(stores.KindResetToken, err)
	}

	if int(record.Attempts) >= maxAttempts {
		_, _ = e.challenges.Delete(ctx, stores.KindResetToken, accountID)
		e.metricInc(MetricOTPExhausted)
		return ErrTooManyAttempts
	}

	ok := false
	challengeID, secret, derr := internal.DecodeResetToken(token)
	if derr == nil && challengeID == record.ChallengeID {
		var verr error
		ok, verr = e.hasher.Verify(internal.EncodeResetSecret(secret), record.Digest)
		if verr != nil {
			ok = false
		}
	}
	if !ok {
		exceeded, recErr := e.challenges.RecordFailure(ctx, stores.KindResetToken, accountID, maxAttempts)
		if recErr != nil {
			return e.mapChallengeError(stores.KindResetToken, recErr)
		}
		if exceeded {
			e.metricInc(MetricOTPExhausted)
			return ErrTooManyAttempts
		}
		e.metricInc(MetricOTPInvalid)
		return ErrInvalidCode
	}

	deleted, err := e.challenges.Delete(ctx, stores.KindResetToken, accountID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !deleted {
		// Another request consumed the token between Get and Delete.
		return ErrNoPendingChallenge
	}
	return nil
}
