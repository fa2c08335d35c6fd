package authkit

import "time"

// SecurityReport summarizes the engine's effective security posture for
// operators. All fields derive from configuration; nothing here reads live
// state.
type SecurityReport struct {
	SigningAlgorithm  string
	SessionTTL        time.Duration
	SessionLeeway     time.Duration
	Argon2            PasswordConfigReport
	MinPasswordLength int
	OTPDigits         int
	OTPTTL            time.Duration
	OTPMaxAttempts    int
	ResendCooldown    time.Duration
	ResetTokenTTL     time.Duration
	ResetMaxAttempts  int
	EmailThrottle     bool
	IPThrottle        bool
	PasswordUpgrades  bool
	MetricsEnabled    bool
	NotifyTimeout     time.Duration
}

// PasswordConfigReport mirrors the active argon2id parameters.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm: e.config.Session.SigningMethod,
		SessionTTL:       e.config.Session.TTL,
		SessionLeeway:    e.config.Session.Leeway,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		MinPasswordLength: e.config.Password.MinLength,
		OTPDigits:         e.config.OTP.Digits,
		OTPTTL:            e.config.OTP.TTL,
		OTPMaxAttempts:    e.config.OTP.MaxAttempts,
		ResendCooldown:    e.config.OTP.ResendCooldown,
		ResetTokenTTL:     e.config.Reset.TokenTTL,
		ResetMaxAttempts:  e.config.Reset.MaxAttempts,
		EmailThrottle:     e.config.Limits.EnableEmailThrottle,
		IPThrottle:        e.config.Limits.EnableIPThrottle,
		PasswordUpgrades:  e.config.Password.UpgradeOnLogin,
		MetricsEnabled:    e.config.Metrics.Enabled,
		NotifyTimeout:     e.config.Notify.Timeout,
	}
}
