package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func hsConfig() Config {
	return Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "parley-test",
	}
}

func newHSManager(t *testing.T, now *time.Time) *Manager {
	t.Helper()
	m, err := NewManager(hsConfig())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m.WithClock(func() time.Time { return *now })
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newHSManager(t, &now)

	token, err := m.Issue("acct-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	uid, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if uid != "acct-42" {
		t.Fatalf("uid = %q, want acct-42", uid)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newHSManager(t, &now)

	token, err := m.Issue("acct-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	now = now.Add(time.Hour + time.Minute)

	if _, err := m.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyLeewayToleratesSmallSkew(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cfg := hsConfig()
	cfg.Leeway = 30 * time.Second
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m = m.WithClock(func() time.Time { return now })

	token, err := m.Issue("acct-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	now = now.Add(time.Hour + 10*time.Second)

	if _, err := m.Verify(token); err != nil {
		t.Fatalf("token inside leeway rejected: %v", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newHSManager(t, &now)

	token, err := m.Issue("acct-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	otherCfg := hsConfig()
	otherCfg.PrivateKey = []byte("ffffffffffffffffffffffffffffffff")
	other, err := NewManager(otherCfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	other = other.WithClock(func() time.Time { return now })

	if _, err := other.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyWrongIssuer(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newHSManager(t, &now)

	token, err := m.Issue("acct-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	cfg := hsConfig()
	cfg.Issuer = "someone-else"
	other, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	other = other.WithClock(func() time.Time { return now })

	if _, err := other.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newHSManager(t, &now)

	for _, token := range []string{"", "not.a.jwt", "a.b"} {
		if _, err := m.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("Verify(%q): expected ErrTokenInvalid, got %v", token, err)
		}
	}
}

func TestIssueRejectsEmptyAccountID(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newHSManager(t, &now)

	if _, err := m.Issue("   "); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestEd25519Roundtrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	now := time.Unix(1_700_000_000, 0)
	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "parley-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m = m.WithClock(func() time.Time { return now })

	token, err := m.Issue("acct-7")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	uid, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if uid != "acct-7" {
		t.Fatalf("uid = %q, want acct-7", uid)
	}
}

func TestEd25519VerifyOnlyManagerCannotIssue(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := m.Issue("acct-7"); err == nil {
		t.Fatal("expected issue failure without private key")
	}
}

func TestNewManagerRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{"negative leeway", Config{TTL: time.Hour, Leeway: -time.Second, SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{"excessive leeway", Config{TTL: time.Hour, Leeway: 10 * time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{"hs256 without key", Config{TTL: time.Hour, SigningMethod: MethodHS256}},
		{"ed25519 without public key", Config{TTL: time.Hour, SigningMethod: MethodEd25519}},
		{"unknown method", Config{TTL: time.Hour, SigningMethod: "rs256"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}
