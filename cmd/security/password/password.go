package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash validates password against the policy and returns its bcrypt hash.
// bcrypt draws a fresh 16-byte salt from crypto/rand on every call.
func (c Config) Hash(password string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	if err := c.Validate(password); err != nil {
		return "", err
	}
	return c.hash([]byte(password))
}

// HashSecret hashes a machine-generated secret (e.g. a session id). No policy
// applies beyond bcrypt's 72-byte input limit.
func (c Config) HashSecret(secret string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	if secret == "" {
		return "", ErrPasswordTooShort
	}
	if len(secret) > maxSecretBytes {
		return "", ErrPasswordTooLong
	}
	return c.hash([]byte(secret))
}

func (c Config) hash(b []byte) (string, error) {
	h, err := bcrypt.GenerateFromPassword(b, c.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, ErrInvalidHash
	}

	// Anti-DoS boundary: an attacker-influenced hash with a huge cost must not
	// be computed.
	if cost > MaxCost {
		return false, ErrInvalidHash
	}

	// Inputs bcrypt would truncate can never have been hashed by this package.
	if len(password) > maxSecretBytes {
		return false, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}
