package internaldefs

import (
	authkit "github.com/parley-chat/authkit"
)

// CounterDef binds one engine counter to its exported name and help text.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs is the full export catalog, in stable render order.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricRegisterSuccess, Name: "authkit_register_success_total", Help: "Successfully created accounts."},
	{ID: authkit.MetricRegisterDuplicate, Name: "authkit_register_duplicate_total", Help: "Registrations rejected for an already-taken email."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed password checks."},
	{ID: authkit.MetricLoginRateLimited, Name: "authkit_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authkit.MetricOTPIssued, Name: "authkit_otp_issued_total", Help: "Issued one-time passcodes."},
	{ID: authkit.MetricOTPVerified, Name: "authkit_otp_verified_total", Help: "Successfully verified one-time passcodes."},
	{ID: authkit.MetricOTPInvalid, Name: "authkit_otp_invalid_total", Help: "Wrong-code verification attempts."},
	{ID: authkit.MetricOTPExpired, Name: "authkit_otp_expired_total", Help: "Verification attempts against expired challenges."},
	{ID: authkit.MetricOTPExhausted, Name: "authkit_otp_exhausted_total", Help: "Challenges locked after too many wrong attempts."},
	{ID: authkit.MetricDeliveryFailure, Name: "authkit_delivery_failure_total", Help: "Challenge emails that could not be delivered."},
	{ID: authkit.MetricResetRequest, Name: "authkit_reset_request_total", Help: "Password reset requests (including enumeration-safe no-ops)."},
	{ID: authkit.MetricResetRateLimited, Name: "authkit_reset_rate_limited_total", Help: "Rate-limited reset requests."},
	{ID: authkit.MetricResetTokenIssued, Name: "authkit_reset_token_issued_total", Help: "Issued password reset tokens."},
	{ID: authkit.MetricPasswordResetSuccess, Name: "authkit_password_reset_success_total", Help: "Completed password resets."},
	{ID: authkit.MetricPasswordResetFailure, Name: "authkit_password_reset_failure_total", Help: "Failed password reset confirmations."},
	{ID: authkit.MetricSessionIssued, Name: "authkit_session_issued_total", Help: "Issued session tokens."},
}
