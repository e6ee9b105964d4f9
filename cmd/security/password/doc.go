// Package password provides bcrypt hashing and verification for Classy.
//
// The same primitive protects account passwords and session identifiers:
//   - Hash applies the password policy, then hashes.
//   - HashSecret hashes machine-generated secrets (session ids) without the policy.
//
// Security notes:
//   - The cost factor is required configuration; there is no built-in default.
//   - Hash strings are treated as untrusted input during Verify: hashes whose cost
//     exceeds MaxCost are refused rather than computed.
package password
