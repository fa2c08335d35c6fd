package authkit

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrValidation is an exported constant or variable used by the authentication engine.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicateEmail is an exported constant or variable used by the authentication engine.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is an exported constant or variable used by the authentication engine.
	ErrAccountInactive = errors.New("account inactive")
	// ErrNoPendingChallenge is an exported constant or variable used by the authentication engine.
	ErrNoPendingChallenge = errors.New("no pending challenge")
	// ErrChallengeExpired is an exported constant or variable used by the authentication engine.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrTooManyAttempts is an exported constant or variable used by the authentication engine.
	ErrTooManyAttempts = errors.New("challenge attempts exceeded")
	// ErrInvalidCode is an exported constant or variable used by the authentication engine.
	ErrInvalidCode = errors.New("invalid code")
	// ErrChallengeThrottled is an exported constant or variable used by the authentication engine.
	ErrChallengeThrottled = errors.New("challenge re-issue throttled")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrResetRateLimited is an exported constant or variable used by the authentication engine.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrDeliveryFailed is an exported constant or variable used by the authentication engine.
	ErrDeliveryFailed = errors.New("notification delivery failed")
	// ErrResetTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	// ErrSessionTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrSessionTokenInvalid = errors.New("invalid session token")
	// ErrSessionTokenExpired is an exported constant or variable used by the authentication engine.
	ErrSessionTokenExpired = errors.New("session token expired")
	// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
	ErrBackendUnavailable = errors.New("persistence backend unavailable")
)
