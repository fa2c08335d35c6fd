// Package accounts defines the account record and the Store collaborator the
// engine persists credentials through, plus two reference implementations:
// a Redis-backed store and a PostgreSQL (pgx) store.
//
// A store must enforce uniqueness on the normalized email and must make
// password-hash updates atomic with respect to concurrent writers. Challenge
// state is not part of the account record; it lives in dedicated expiring
// records owned by the engine.
package accounts
