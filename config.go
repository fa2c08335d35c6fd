package authkit

import (
	"errors"
	"time"

	"github.com/parley-chat/authkit/internal"
	"github.com/parley-chat/authkit/jwt"
	"github.com/parley-chat/authkit/password"
)

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Password PasswordConfig
	OTP      OTPConfig
	Reset    ResetConfig
	Session  SessionConfig
	Notify   NotifyConfig
	Limits   LimitsConfig
	Metrics  MetricsConfig

	// ChallengePrefix namespaces challenge records in Redis.
	ChallengePrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authkit APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig governs the emailed one-time passcodes used by both the login
// flow and reset phase one.
type OTPConfig struct {
	Digits         int
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

/*
====================================
RESET CONFIG
====================================
*/

// ResetConfig governs reset phase two: the bearer token issued after a
// verified reset OTP.
type ResetConfig struct {
	TokenTTL    time.Duration
	MaxAttempts int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authkit APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig defines a public type used by authkit APIs.
//
// NotifyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type NotifyConfig struct {
	Timeout      time.Duration
	AppName      string
	LoginSubject string
	ResetSubject string
}

/*
====================================
LIMITS CONFIG
====================================
*/

// LimitsConfig defines a public type used by authkit APIs.
//
// LimitsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LimitsConfig struct {
	EnableEmailThrottle bool
	EnableIPThrottle    bool
	MaxRequests         int
	Window              time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by authkit APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration. It validates as-is once
// signing key material is set; integrators adjust fields before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      10,
			UpgradeOnLogin: true,
		},
		OTP: OTPConfig{
			Digits:         6,
			TTL:            5 * time.Minute,
			MaxAttempts:    5,
			ResendCooldown: 30 * time.Second,
		},
		Reset: ResetConfig{
			TokenTTL:    15 * time.Minute,
			MaxAttempts: 5,
		},
		Session: SessionConfig{
			TTL:           7 * 24 * time.Hour,
			SigningMethod: string(jwt.MethodEd25519),
			Issuer:        "parley",
			Leeway:        30 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout:      5 * time.Second,
			AppName:      "Parley",
			LoginSubject: "Your Parley sign-in code",
			ResetSubject: "Your Parley password reset code",
		},
		Limits: LimitsConfig{
			EnableEmailThrottle: true,
			EnableIPThrottle:    true,
			MaxRequests:         10,
			Window:              15 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		ChallengePrefix: "ach",
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if _, err := password.NewHasher(password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}); err != nil {
		return err
	}
	if c.Password.MinLength < 8 {
		return errors.New("password MinLength below minimum")
	}
	if c.OTP.Digits < internal.MinOTPDigits || c.OTP.Digits > internal.MaxOTPDigits {
		return errors.New("OTP Digits out of range")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be positive")
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP MaxAttempts must be at least 1")
	}
	if c.OTP.ResendCooldown < 0 || c.OTP.ResendCooldown >= c.OTP.TTL {
		return errors.New("OTP ResendCooldown must be shorter than the TTL")
	}
	if c.Reset.TokenTTL <= 0 {
		return errors.New("Reset TokenTTL must be positive")
	}
	if c.Reset.MaxAttempts < 1 {
		return errors.New("Reset MaxAttempts must be at least 1")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be positive")
	}
	if c.Notify.Timeout <= 0 {
		return errors.New("Notify Timeout must be positive")
	}
	if c.Limits.EnableEmailThrottle || c.Limits.EnableIPThrottle {
		if c.Limits.MaxRequests < 1 {
			return errors.New("Limits MaxRequests must be at least 1")
		}
		if c.Limits.Window <= 0 {
			return errors.New("Limits Window must be positive")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.PrivateKey = append([]byte(nil), cfg.Session.PrivateKey...)
	out.Session.PublicKey = append([]byte(nil), cfg.Session.PublicKey...)
	return out
}
