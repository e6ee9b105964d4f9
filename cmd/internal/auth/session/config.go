package session

import "time"

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 30 * 24 * time.Hour

// Config defines the runtime configuration of the session subsystem.
type Config struct {
	// Issuer is the value set in the "iss" claim and required on verification.
	Issuer string

	// TTL is the token lifetime from issuance.
	TTL time.Duration

	// ClockSkew tolerates "iat" and "nbf" slightly in the future. Expiry is
	// checked against the exact current time.
	ClockSkew time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Issuer:    "classy",
		TTL:       DefaultTTL,
		ClockSkew: 30 * time.Second,
	}
}

// Validate reports ErrConfig when a field is unusable.
func (c Config) Validate() error {
	if c.Issuer == "" || c.TTL <= 0 || c.ClockSkew < 0 || c.ClockSkew >= c.TTL {
		return ErrConfig
	}
	return nil
}
