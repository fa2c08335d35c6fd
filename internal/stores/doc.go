// Package stores holds the Redis-backed challenge records behind every
// authkit flow. One record type serves the login OTP, the reset OTP, and the
// reset token: all three are the same shape — a hashed secret with an expiry
// and an attempt budget — differing only in their Kind tag.
//
// Records are keyed <prefix>:<kind>:<accountID>, so at most one challenge per
// (account, flow) can exist, re-issuing is an overwrite, and purging is a
// plain DEL. Attempt increments run under WATCH so two concurrent failed
// submissions never lose an update.
package stores
