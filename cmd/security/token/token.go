package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MinHMACKeyBytes is the minimum accepted fingerprint key size.
	MinHMACKeyBytes = 32

	fingerprintHexLen = 16
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// Fingerprinter derives short, stable, non-reversible identifiers for secrets.
// The zero value uses plain SHA-256.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns a Fingerprinter. An empty key selects SHA-256 mode;
// a non-empty key shorter than MinHMACKeyBytes is rejected.
func NewFingerprinter(key string) (Fingerprinter, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Fingerprinter{}, nil
	}
	if len(key) < MinHMACKeyBytes {
		return Fingerprinter{}, ErrHMACKeyTooShort
	}
	return Fingerprinter{key: []byte(key)}, nil
}

// Keyed reports whether HMAC mode is active.
func (f Fingerprinter) Keyed() bool { return len(f.key) > 0 }

// Fingerprint returns the first 16 hex chars of the digest of s.
func (f Fingerprinter) Fingerprint(s string) string {
	var full string
	if f.Keyed() {
		full = HashHMACSHA256Hex(s, f.key)
	} else {
		full = HashSHA256Hex(s)
	}
	return full[:fingerprintHexLen]
}
