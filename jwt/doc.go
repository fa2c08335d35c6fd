// Package jwt mints and validates the stateless session tokens authkit hands
// out after a completed login. A token binds exactly one claim of interest —
// the account id — plus standard expiry metadata. Validation always fails
// closed: any signature, method, or expiry mismatch yields an error, never a
// partially trusted result.
package jwt
