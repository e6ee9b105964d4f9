package authapi

import "golang.org/x/time/rate"

// Config controls HTTP API behavior and security defaults.
type Config struct {
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64

	// LoginRPS and LoginBurst bound login attempts per client IP.
	// A non-positive LoginRPS disables the limiter.
	LoginRPS   float64
	LoginBurst int
}

// DefaultConfig returns safe defaults: 1 MiB bodies, 1 login/s with bursts of 5.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 1 << 20,
		LoginRPS:     1,
		LoginBurst:   5,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.LoginRPS > 0 && c.LoginBurst <= 0 {
		c.LoginBurst = d.LoginBurst
	}
	return c
}

func (c Config) loginLimit() rate.Limit {
	if c.LoginRPS <= 0 {
		return rate.Inf
	}
	return rate.Limit(c.LoginRPS)
}
