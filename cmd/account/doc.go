// Package account implements Classy's account records and their persistence.
//
// An account is the identity shared by every kind of user (admin, student,
// teacher). It carries the password hash, the per-account signing key pair,
// and the single active session hash.
//
// Store adapters: in-memory (tests/dev), PostgreSQL (pgx), Badger (embedded)
// and Redis.
package account
