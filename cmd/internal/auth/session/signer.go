package session

import (
	"errors"
	"fmt"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Claims is the verified content of a signed payload.
type Claims struct {
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// Signer issues and verifies PASETO v4.public payloads with per-account keys.
// It holds no key material itself.
type Signer struct {
	issuer    string
	clockSkew time.Duration
	now       func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithClock overrides the time source used for verification.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner builds a Signer enforcing cfg's issuer and clock skew.
func NewSigner(cfg Config, opts ...SignerOption) *Signer {
	s := &Signer{
		issuer:    cfg.Issuer,
		clockSkew: cfg.ClockSkew,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Issue signs claims with the hex-encoded secret key. SessionID and ExpiresAt
// are required; IssuedAt defaults to the signer's clock.
func (s *Signer) Issue(secretKeyHex string, c Claims) (string, error) {
	if c.SessionID == "" || c.ExpiresAt.IsZero() {
		return "", errors.New("session: incomplete claims")
	}
	secret, err := paseto.NewV4AsymmetricSecretKeyFromHex(secretKeyHex)
	if err != nil {
		return "", fmt.Errorf("session: secret key: %w", err)
	}

	iat := c.IssuedAt
	if iat.IsZero() {
		iat = s.now()
	}

	tok := paseto.NewToken()
	tok.SetIssuer(s.issuer)
	tok.SetIssuedAt(iat)
	tok.SetNotBefore(iat)
	tok.SetExpiration(c.ExpiresAt)
	if err := tok.Set("sid", c.SessionID); err != nil {
		return "", fmt.Errorf("session: set sid: %w", err)
	}

	return tok.V4Sign(secret, nil), nil
}

// Verify checks signed against the hex-encoded public key. A bad key, a bad
// signature, a malformed payload, a wrong issuer, an expiry at or before now,
// or an iat/nbf beyond now plus the clock skew all yield ErrInvalidToken.
func (s *Signer) Verify(publicKeyHex, signed string) (Claims, error) {
	public, err := paseto.NewV4AsymmetricPublicKeyFromHex(publicKeyHex)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	// Build a fresh parser per call to avoid accumulating rules across verifies.
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(s.issuer))

	parsed, err := p.ParseV4Public(public, signed, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	now := s.now()
	exp, err := parsed.GetExpiration()
	if err != nil || !now.Before(exp) {
		return Claims{}, ErrInvalidToken
	}
	horizon := now.Add(s.clockSkew)
	iat, err := parsed.GetIssuedAt()
	if err != nil || iat.After(horizon) {
		return Claims{}, ErrInvalidToken
	}
	nbf, err := parsed.GetNotBefore()
	if err != nil || nbf.After(horizon) {
		return Claims{}, ErrInvalidToken
	}
	sid, err := parsed.GetString("sid")
	if err != nil || sid == "" {
		return Claims{}, ErrInvalidToken
	}
	iss, _ := parsed.GetIssuer()

	return Claims{
		SessionID: sid,
		IssuedAt:  iat,
		ExpiresAt: exp,
		Issuer:    iss,
	}, nil
}
