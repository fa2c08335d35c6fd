// Package authkit is the authentication engine for the Parley chat backend.
// It covers password + emailed one-time-passcode login, a two-phase password
// reset flow (OTP, then a short-lived reset token), and stateless signed
// session tokens.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config], the
// collaborator interfaces ([Notifier], [AuditSink], accounts.Store), and value
// types (LoginResult, MetricsSnapshot, etc.). Challenge persistence, record
// encoding, and request throttling live under internal/ and are never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, challenge stores, or record encodings in its
//     public API.
//   - Store any secret in plaintext. Passwords, OTP codes, and reset tokens
//     are persisted only as argon2id digests.
//   - Send email itself. Delivery goes through the injected [Notifier]; a
//     delivery failure rolls back the challenge it was announcing.
//
// # Flow contract
//
// Login is two steps: password check, then an emailed OTP bound to the
// account. Password reset is three: an emailed OTP, a bearer reset token
// issued on OTP success, and exactly one password change authorized by that
// token. Every challenge is time-boxed, attempt-limited, and destroyed on its
// first terminal outcome.
package authkit
