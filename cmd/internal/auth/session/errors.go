package session

import "errors"

var (
	// ErrUnauthorized is the single outcome of every authentication failure.
	// Callers must not be able to tell which check failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedToken is returned by SplitToken. Resolve reports it as ErrUnauthorized.
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidToken is returned when a signed payload fails verification or validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
