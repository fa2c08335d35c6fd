// Package internal contains helper utilities that are intentionally private
// to authkit: secure generation of OTP digits and reset-token material.
//
// # Sub-packages
//
//   - stores — Redis-backed challenge records shared by the login-OTP,
//     reset-OTP, and reset-token flows
//   - limiters — fixed-window request throttles keyed by email and client IP
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API.
//   - Be imported by any package outside the authkit module.
package internal
