// Package credential derives the security material of a new account: a bcrypt
// password hash and a fresh PASETO v4 (Ed25519) signing key pair.
package credential

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"

	paseto "aidanwoods.dev/go-paseto"

	"classy/cmd/security/password"
)

// Material is the security material stored on an account. SecretKey signs
// session tokens, PublicKey verifies them. Both are hex encoded.
type Material struct {
	AuthHash  string
	PublicKey string
	SecretKey string
}

// Generator produces Material. It is pure computation: nothing is logged and
// nothing is stored.
type Generator struct {
	passwords password.Config
	rand      io.Reader
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandom overrides the key-generation entropy source. Tests only.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.rand = r
		}
	}
}

// NewGenerator builds a Generator around an already validated password config.
func NewGenerator(passwords password.Config, opts ...Option) (*Generator, error) {
	if passwords.Cost == 0 {
		return nil, password.ErrCostMissing
	}
	g := &Generator{passwords: passwords, rand: rand.Reader}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Generate hashes pw and mints a key pair independent of it.
// Policy violations are returned as the password package's errors; entropy or
// primitive failures are returned wrapped and must be treated as internal.
func (g *Generator) Generate(pw string) (Material, error) {
	authHash, err := g.passwords.Hash(pw)
	if err != nil {
		return Material{}, err
	}

	secret, public, err := g.keyPair()
	if err != nil {
		return Material{}, err
	}

	return Material{
		AuthHash:  authHash,
		PublicKey: public,
		SecretKey: secret,
	}, nil
}

// Passwords exposes the password config for verification by callers that
// check credentials (login).
func (g *Generator) Passwords() password.Config { return g.passwords }

func (g *Generator) keyPair() (secretHex, publicHex string, err error) {
	_, priv, err := ed25519.GenerateKey(g.rand)
	if err != nil {
		return "", "", fmt.Errorf("credential: generate key pair: %w", err)
	}
	sk, err := paseto.NewV4AsymmetricSecretKeyFromEd25519(priv)
	if err != nil {
		return "", "", fmt.Errorf("credential: import key pair: %w", err)
	}
	return sk.ExportHex(), sk.Public().ExportHex(), nil
}
