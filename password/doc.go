// Package password provides the argon2id hasher used for every at-rest
// secret in authkit: account passwords, OTP codes, and reset tokens. One
// non-reversible storage policy, one implementation.
//
// Digests use the PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash) so parameters travel with the
// digest and verification works across configuration changes.
package password
