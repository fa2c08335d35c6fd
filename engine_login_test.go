package authkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginIssuesOTPNotSession(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")

	result, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.OTPRequired {
		t.Fatal("password match must still require the OTP step")
	}
	if result.MaskedTarget != "a**@x.com" {
		t.Fatalf("masked target = %q", result.MaskedTarget)
	}

	sent := env.notifier.last(t)
	if sent.To != "ann@x.com" {
		t.Fatalf("code sent to %q", sent.To)
	}
	if sent.Subject != fastConfig().Notify.LoginSubject {
		t.Fatalf("subject = %q", sent.Subject)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ann@x.com", "not-the-password"},
		{"unknown email", "bob@x.com", "hunter2hunter2"},
		{"empty password", "ann@x.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.engine.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
	if env.notifier.count() != 0 {
		t.Fatalf("failed logins sent %d emails", env.notifier.count())
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	acct := env.register(t, "ann@x.com", "hunter2hunter2")
	if err := env.store.SetActive(ctx, acct.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestVerifyLoginOTPHappyPath(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	acct := env.register(t, "ann@x.com", "hunter2hunter2")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	token, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", env.notifier.lastOTP(t))
	if err != nil {
		t.Fatalf("VerifyLoginOTP failed: %v", err)
	}

	uid, err := env.engine.VerifySession(ctx, token)
	if err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	if uid != acct.ID {
		t.Fatalf("session uid = %q, want %q", uid, acct.ID)
	}

	// The challenge is consumed: the same code cannot mint a second session.
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", env.notifier.lastOTP(t)); !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("expected ErrNoPendingChallenge on replay, got %v", err)
	}
}

func TestVerifyLoginOTPWrongCodeBurnsAttempt(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// Challenge stays pending; the right code still works.
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", env.notifier.lastOTP(t)); err != nil {
		t.Fatalf("correct code after one miss failed: %v", err)
	}
}

func TestVerifyLoginOTPNonNumericInputBurnsAttempt(t *testing.T) {
	cfg := fastConfig()
	cfg.OTP.MaxAttempts = 3
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	acct := env.register(t, "ann@x.com", "hunter2hunter2")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Non-digit input short-circuits before the hash check but still counts
	// against the attempt budget like any other miss.
	for _, garbage := range []string{"abcdef", "12345x"} {
		if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", garbage); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("VerifyLoginOTP(%q): expected ErrInvalidCode, got %v", garbage, err)
		}
	}

	status, err := env.engine.PendingChallenges(ctx, acct.ID)
	if err != nil {
		t.Fatalf("PendingChallenges failed: %v", err)
	}
	if len(status) != 1 || status[0].Attempts != 2 {
		t.Fatalf("expected one challenge with 2 burned attempts, got %+v", status)
	}

	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", env.notifier.lastOTP(t)); err != nil {
		t.Fatalf("correct code after garbage misses failed: %v", err)
	}
}

func TestVerifyLoginOTPAttemptExhaustion(t *testing.T) {
	cfg := fastConfig()
	cfg.OTP.MaxAttempts = 5
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := env.notifier.lastOTP(t)

	for i := 1; i < cfg.OTP.MaxAttempts; i++ {
		if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i, err)
		}
	}
	// Final miss spends the budget and purges the challenge.
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", "000000"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}

	// Even the correct code is dead now.
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", code); !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("expected ErrNoPendingChallenge after exhaustion, got %v", err)
	}
}

func TestVerifyLoginOTPExpiry(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := env.notifier.lastOTP(t)

	*env.now = env.now.Add(6 * time.Minute)

	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", code); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
	// Expiry purges; a retry sees nothing pending rather than expired again.
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", code); !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("expected ErrNoPendingChallenge after purge, got %v", err)
	}
}

func TestLoginReissueInvalidatesPriorCode(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("first Login failed: %v", err)
	}
	firstCode := env.notifier.lastOTP(t)

	// Burn a few attempts, then re-issue.
	for i := 0; i < 3; i++ {
		if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode, got %v", err)
		}
	}
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("second Login failed: %v", err)
	}
	secondCode := env.notifier.lastOTP(t)

	// Fresh challenge: the old code is dead and the attempt budget is back
	// to zero, so a full run of misses is available again before it locks.
	if firstCode != secondCode {
		if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", firstCode); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("stale code: expected ErrInvalidCode, got %v", err)
		}
	}
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", secondCode); err != nil {
		t.Fatalf("fresh code failed: %v", err)
	}
}

func TestLoginResendCooldown(t *testing.T) {
	cfg := fastConfig()
	cfg.OTP.ResendCooldown = 30 * time.Second
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("first Login failed: %v", err)
	}

	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); !errors.Is(err, ErrChallengeThrottled) {
		t.Fatalf("expected ErrChallengeThrottled, got %v", err)
	}

	*env.now = env.now.Add(31 * time.Second)
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login after cooldown failed: %v", err)
	}
}

func TestLoginDeliveryFailureRollsBackChallenge(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")

	env.notifier.failWith = errors.New("smtp unreachable")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}

	// The undelivered challenge must not linger in Redis.
	if keys := env.redis.Keys(); len(keys) != 0 {
		t.Fatalf("challenge survived delivery failure: %v", keys)
	}

	// Recovery: once delivery works, login issues a usable code.
	env.notifier.failWith = nil
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login after recovery failed: %v", err)
	}
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", env.notifier.lastOTP(t)); err != nil {
		t.Fatalf("VerifyLoginOTP failed: %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	cfg := fastConfig()
	cfg.Limits.EnableEmailThrottle = true
	cfg.Limits.MaxRequests = 2
	cfg.Limits.Window = time.Minute
	cfg.OTP.ResendCooldown = 0
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	env.register(t, "ann@x.com", "hunter2hunter2")

	for i := 0; i < 2; i++ {
		if _, err := env.engine.Login(ctx, "ann@x.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := env.engine.Login(ctx, "ann@x.com", "wrong-password"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
}

func TestVerifyLoginOTPInactiveAccountPurgesChallenge(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	ctx := context.Background()

	acct := env.register(t, "ann@x.com", "hunter2hunter2")
	if _, err := env.engine.Login(ctx, "ann@x.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := env.notifier.lastOTP(t)

	if err := env.store.SetActive(ctx, acct.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", code); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}

	// Reactivation does not revive the dropped challenge.
	if err := env.store.SetActive(ctx, acct.ID, true); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if _, err := env.engine.VerifyLoginOTP(ctx, "ann@x.com", code); !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("expected ErrNoPendingChallenge, got %v", err)
	}
}
