package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost is bcrypt's lower bound.
	MinCost = bcrypt.MinCost
	// MaxCost caps the configured cost and the cost of hashes accepted by
	// Verify. bcrypt allows up to 31, which takes hours per hash.
	MaxCost = 16

	// maxSecretBytes is bcrypt's input limit.
	maxSecretBytes = 72
)

// Policy controls password validation.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Cost   int
	Policy Policy
}

// DefaultPolicy matches the account creation form: 8..64 characters.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:      8,
		MaxLength:      64,
		RejectVeryWeak: false,
	}
}

// New validates cost and policy and returns a ready Config.
// A zero cost means the operator did not configure one and is an error.
func New(cost int, policy Policy) (Config, error) {
	if cost == 0 {
		return Config{}, ErrCostMissing
	}
	if cost < MinCost || cost > MaxCost {
		return Config{}, fmt.Errorf("%w: %d not in [%d..%d]", ErrCostOutOfRange, cost, MinCost, MaxCost)
	}
	if policy.MinLength <= 0 || policy.MaxLength <= 0 {
		return Config{}, fmt.Errorf("password policy invalid: lengths must be positive")
	}
	if policy.MinLength > policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			policy.MinLength,
			policy.MaxLength,
		)
	}
	return Config{Cost: cost, Policy: policy}, nil
}

// ready reports whether c was built by New (or equivalently populated).
func (c Config) ready() error {
	if c.Cost == 0 {
		return ErrCostMissing
	}
	if c.Cost < MinCost || c.Cost > MaxCost {
		return ErrCostOutOfRange
	}
	return nil
}
