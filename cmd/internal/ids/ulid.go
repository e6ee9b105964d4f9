// Package ids provides identifier primitives (ULID) used for session ids.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a new ULID string (26 chars) with 80 bits of crypto/rand
// entropy. ULIDs fit within bcrypt's 72-byte input limit, which matters since
// session ids are bcrypt-hashed.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
