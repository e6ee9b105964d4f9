// Package token provides digest primitives for correlating secrets in logs and
// events without revealing them.
//
// Session ids and bearer tokens are never logged. Where an operator needs to
// correlate events for one session, a short fingerprint is logged instead:
//   - SHA-256 when no key is configured.
//   - HMAC-SHA256 with the configured key otherwise, so fingerprints cannot be
//     matched against guessed inputs offline.
package token
