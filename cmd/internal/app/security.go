package app

import (
	"errors"
	"fmt"

	"classy/cmd/security/password"
	"classy/cmd/security/token"
)

// SecurityConfig holds the validated security primitives.
type SecurityConfig struct {
	Passwords    password.Config
	Fingerprints token.Fingerprinter
}

// ValidateSecurityConfig enforces the security policy at startup.
// A missing bcrypt cost is fatal: there is no safe default.
func ValidateSecurityConfig(cfg Config) (SecurityConfig, error) {
	passwords, err := password.New(cfg.Bcrypt.Cost, password.DefaultPolicy())
	if err != nil {
		switch {
		case errors.Is(err, password.ErrCostMissing):
			return SecurityConfig{}, errors.New("security policy: CLASSY_BCRYPT_COST (bcrypt.cost) is not set")
		case errors.Is(err, password.ErrCostOutOfRange):
			return SecurityConfig{}, fmt.Errorf("security policy: bcrypt.cost must be in [%d..%d]", password.MinCost, password.MaxCost)
		default:
			return SecurityConfig{}, err
		}
	}

	fp, err := token.NewFingerprinter(cfg.Fingerprint.Key)
	if err != nil {
		if errors.Is(err, token.ErrHMACKeyTooShort) {
			return SecurityConfig{}, fmt.Errorf("security policy: fingerprint.key is too short (min %d bytes)", token.MinHMACKeyBytes)
		}
		return SecurityConfig{}, err
	}

	return SecurityConfig{Passwords: passwords, Fingerprints: fp}, nil
}
