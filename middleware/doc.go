// Package middleware exposes HTTP adapters for authkit session enforcement.
//
// # Guards
//
//   - [RequireSession] — rejects requests without a valid bearer session
//     token and injects the resolved account id into the request context.
//
// Each guard reads the Authorization header, calls Engine.VerifySession, and
// makes the account id available through [AccountIDFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.VerifySession.
//
// # What this package must NOT do
//
//   - Parse or create session tokens directly (delegates to the Engine).
//   - Access Redis or the account store (the Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from VerifySession.
package middleware
