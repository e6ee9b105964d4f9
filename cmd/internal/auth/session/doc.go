// Package session implements Classy's session lifecycle.
//
// Each account owns a PASETO v4.public key pair. At login a random session id
// is signed into a token with the account's secret key and, hashed with the
// password primitive, bound to the account as its single active session.
//
// Tokens travel as base64url(accountID) + ";" + signedPayload. Resolution
// looks the account up by the unsigned id, verifies the signature with that
// account's public key, and checks the embedded session id against the bound
// hash. Any failure yields the same ErrUnauthorized.
//
// A new login overwrites the bound hash, invalidating every earlier token for
// the account.
package session
