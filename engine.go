package authkit

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/parley-chat/authkit/accounts"
	"github.com/parley-chat/authkit/internal"
	"github.com/parley-chat/authkit/internal/limiters"
	"github.com/parley-chat/authkit/internal/stores"
	"github.com/parley-chat/authkit/jwt"
	"github.com/parley-chat/authkit/password"
)

const (
	throttleScopeLogin = "login"
	throttleScopeReset = "reset"
)

// Engine is the authentication core. Construct it through [Builder.Build];
// the zero value is not usable. All methods are safe for concurrent use.
type Engine struct {
	config       Config
	accountStore accounts.Store
	hasher       *password.Hasher
	tokens       *jwt.Manager
	challenges   *stores.ChallengeStore
	throttle     *limiters.RequestThrottle
	notifier     Notifier
	audit        AuditSink
	metrics      *Metrics
	now          func() time.Time
}

// VerifySession resolves a session token to the account id it was issued
// for. It fails with [ErrSessionTokenExpired] or [ErrSessionTokenInvalid];
// there is no partially trusted outcome.
func (e *Engine) VerifySession(ctx context.Context, token string) (string, error) {
	if e.tokens == nil {
		return "", ErrEngineNotReady
	}
	accountID, err := e.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrSessionTokenExpired
		}
		return "", ErrSessionTokenInvalid
	}
	return accountID, nil
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// issueOTPChallenge generates a fresh code, persists only its argon2 digest,
// and notifies the account's email. Issuance and notification are one
// logical unit: a delivery error deletes the record before surfacing, so no
// unusable pending state is left behind. Re-issuing while a challenge is
// pending overwrites it (attempts back to zero, new deadline, old code dead),
// subject to the resend cooldown.
func (e *Engine) issueOTPChallenge(ctx context.Context, kind stores.Kind, acct Account, subject string) error {
	now := e.now()

	if cooldown := e.config.OTP.ResendCooldown; cooldown > 0 {
		existing, err := e.challenges.Get(ctx, kind, acct.ID)
		switch {
		case err == nil:
			if now.Sub(time.Unix(existing.RequestedAt, 0)) < cooldown {
				return ErrChallengeThrottled
			}
		case errors.Is(err, stores.ErrChallengeNotFound), errors.Is(err, stores.ErrChallengeExpired):
			// Nothing pending; issue freely.
		default:
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	digest, err := e.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	record := &stores.ChallengeRecord{
		Kind:        kind,
		AccountID:   acct.ID,
		Target:      acct.Email,
		Digest:      digest,
		ExpiresAt:   now.Add(e.config.OTP.TTL).Unix(),
		RequestedAt: now.Unix(),
		Attempts:    0,
	}
	if err := e.challenges.Save(ctx, record, e.config.OTP.TTL); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	text, html := otpEmail(e.config.Notify.AppName, code, e.config.OTP.TTL)
	if err := e.sendTimed(ctx, acct.Email, subject, text, html); err != nil {
		// Roll back: the code the user never received must not stay live.
		if _, delErr := e.challenges.Delete(ctx, kind, acct.ID); delErr != nil {
			log.Print("authkit: challenge rollback failed after delivery error")
		}
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventDeliveryFailure, false, acct.ID, ErrDeliveryFailed, nil)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, acct.ID, nil, func() map[string]string {
		return map[string]string{
			"kind": challengeKindLabel(kind),
		}
	})
	return nil
}

// verifyChallenge runs the shared OTP verification ladder: expiry, attempt
// budget, digest match. On a mismatch the attempt counter is incremented
// atomically and the challenge stays pending (unless the budget is spent, in
// which case it is purged). On a match the record is consumed; a concurrent
// consume of the same record is reported as no pending challenge.
func (e *Engine) verifyChallenge(ctx context.Context, kind stores.Kind, accountID, candidate string, maxAttempts int) error {
	record, err := e.challenges.Get(ctx, kind, accountID)
	if err != nil {
		return e.mapChallengeError(kind, err)
	}

	if int(record.Attempts) >= maxAttempts {
		_, _ = e.challenges.Delete(ctx, kind, accountID)
		e.metricInc(MetricOTPExhausted)
		return ErrTooManyAttempts
	}

	// Generated codes are all digits; anything else can never match, so
	// skip the argon2 cost and burn the attempt directly.
	ok := internal.IsNumericString(candidate)
	if ok {
		var verr error
		ok, verr = e.hasher.Verify(candidate, record.Digest)
		if verr != nil {
			ok = false
		}
	}
	if !ok {
		exceeded, recErr := e.challenges.RecordFailure(ctx, kind, accountID, maxAttempts)
		if recErr != nil {
			return e.mapChallengeError(kind, recErr)
		}
		if exceeded {
			e.metricInc(MetricOTPExhausted)
			return ErrTooManyAttempts
		}
		e.metricInc(MetricOTPInvalid)
		return ErrInvalidCode
	}

	deleted, err := e.challenges.Delete(ctx, kind, accountID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !deleted {
		// Another request consumed the challenge between Get and Delete.
		return ErrNoPendingChallenge
	}
	return nil
}

func (e *Engine) mapChallengeError(kind stores.Kind, err error) error {
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound):
		return ErrNoPendingChallenge
	case errors.Is(err, stores.ErrChallengeExpired):
		e.metricInc(MetricOTPExpired)
		return ErrChallengeExpired
	case errors.Is(err, stores.ErrChallengeExceeded):
		e.metricInc(MetricOTPExhausted)
		return ErrTooManyAttempts
	default:
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
}

func challengeKindLabel(kind stores.Kind) string {
	switch kind {
	case stores.KindLoginOTP:
		return "login_otp"
	case stores.KindResetOTP:
		return "reset_otp"
	case stores.KindResetToken:
		return "reset_token"
	default:
		return "unknown"
	}
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return fmt.Errorf("%w: email", ErrValidation)
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: email", ErrValidation)
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("%w: email", ErrValidation)
	}
	return nil
}

// sleepEnumerationDelay keeps the unknown-email path of reset requests from
// being timing-distinguishable from the real issuance path.
func sleepEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	delay := time.Duration(minMs+n.Int64()) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
