package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"classy/cmd/account"
	"classy/cmd/internal/events"
	"classy/cmd/internal/ids"
	"classy/cmd/internal/metrics"
	"classy/cmd/security/password"
	"classy/cmd/security/token"
)

// dummyPassword is hashed once at construction so logins for unknown ids pay
// the same bcrypt cost as real ones.
const dummyPassword = "classy-dummy-password"

// Issued is the result of a successful login. Token is the only value handed
// to the client; SessionID stays server-side.
type Issued struct {
	Token     string
	AccountID string
	SessionID string
	ExpiresAt time.Time
}

// Service implements login, logout and token resolution.
type Service struct {
	cfg       Config
	accounts  account.Store
	passwords password.Config
	signer    *Signer
	hashes    *HashStore
	resolver  *Resolver

	events       events.Publisher
	fingerprints token.Fingerprinter
	log          *slog.Logger
	metrics      *metrics.Registry

	now       func() time.Time
	newID     func(time.Time) (string, error)
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the domain event publisher (default: discard).
func WithEvents(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics registry (default: none).
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Service) { s.metrics = m }
}

// WithFingerprinter sets how session ids are fingerprinted in logs and events.
func WithFingerprinter(f token.Fingerprinter) Option {
	return func(s *Service) { s.fingerprints = f }
}

// WithServiceClock overrides the issuance clock. Pair it with the signer's
// WithClock in tests.
func WithServiceClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the login flow. The password config must carry a cost:
// without one neither credentials nor session hashes can be produced.
func NewService(cfg Config, accounts account.Store, passwords password.Config, signer *Signer, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, fmt.Errorf("session: nil signer")
	}
	hashes, err := NewHashStore(accounts, passwords)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:       cfg,
		accounts:  accounts,
		passwords: passwords,
		signer:    signer,
		hashes:    hashes,
		events:    events.Nop{},
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     ids.NewULID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.dummyHash, err = passwords.HashSecret(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("session: dummy hash: %w", err)
	}
	s.resolver = NewResolver(accounts, signer, hashes, s.log, s.metrics)
	return s, nil
}

// Login checks id/password and, on success, starts a new session that
// supersedes any previous one. Unknown ids and wrong passwords both yield
// ErrUnauthorized after comparable work.
func (s *Service) Login(ctx context.Context, id, pw string) (Issued, error) {
	const op = "session.Login"

	id = account.NormalizeID(id)
	if id == "" || pw == "" {
		return Issued{}, account.OpError{Op: op, Kind: account.ErrInvalidInput, Msg: "id and password are required"}
	}

	if account.ValidateID(op, id) != nil {
		_, _ = s.passwords.Verify(s.dummyHash, pw)
		return Issued{}, s.loginFailed(ctx, id)
	}

	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if !account.IsNotFound(err) {
			return Issued{}, fmt.Errorf("%s: %w", op, err)
		}
		_, _ = s.passwords.Verify(s.dummyHash, pw)
		return Issued{}, s.loginFailed(ctx, id)
	}

	ok, err := s.passwords.Verify(acct.AuthHash, pw)
	if err != nil {
		return Issued{}, fmt.Errorf("%s: verify: %w", op, err)
	}
	if !ok {
		return Issued{}, s.loginFailed(ctx, id)
	}

	now := s.now()
	sessionID, err := s.newID(now)
	if err != nil {
		return Issued{}, fmt.Errorf("%s: session id: %w", op, err)
	}
	exp := now.Add(s.cfg.TTL)

	signed, err := s.signer.Issue(acct.SecretKey, Claims{
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: exp,
	})
	if err != nil {
		return Issued{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.hashes.Bind(ctx, acct.ID, sessionID); err != nil {
		if account.IsNotFound(err) {
			return Issued{}, s.loginFailed(ctx, id)
		}
		return Issued{}, fmt.Errorf("%s: bind: %w", op, err)
	}

	fp := s.fingerprints.Fingerprint(sessionID)
	s.metrics.Login("ok")
	s.log.Info("auth.login.ok", "account_id", acct.ID, "account_type", acct.Type.String(), "session_fp", fp)
	s.publish(ctx, events.Event{
		Type:               events.SessionCreated,
		AccountID:          acct.ID,
		AccountType:        acct.Type.String(),
		SessionFingerprint: fp,
		At:                 now,
	})

	return Issued{
		Token:     EncodeToken(acct.ID, signed),
		AccountID: acct.ID,
		SessionID: sessionID,
		ExpiresAt: exp,
	}, nil
}

// Resolve authenticates a bearer token. See Resolver.Resolve.
func (s *Service) Resolve(ctx context.Context, tok string) (Resolved, error) {
	return s.resolver.Resolve(ctx, tok)
}

// Logout clears the resolved account's session.
func (s *Service) Logout(ctx context.Context, r Resolved) error {
	const op = "session.Logout"

	if err := s.hashes.Clear(ctx, r.Account.ID); err != nil {
		if account.IsNotFound(err) {
			return ErrUnauthorized
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	fp := s.fingerprints.Fingerprint(r.Claims.SessionID)
	s.metrics.SessionRevoked()
	s.log.Info("auth.logout", "account_id", r.Account.ID, "session_fp", fp)
	s.publish(ctx, events.Event{
		Type:               events.SessionRevoked,
		AccountID:          r.Account.ID,
		AccountType:        r.Account.Type.String(),
		SessionFingerprint: fp,
		At:                 s.now(),
	})
	return nil
}

// VerifyPassword checks pw against the account's stored hash.
func (s *Service) VerifyPassword(a account.Account, pw string) (bool, error) {
	return s.passwords.Verify(a.AuthHash, pw)
}

func (s *Service) loginFailed(ctx context.Context, id string) error {
	s.metrics.Login("unauthorized")
	s.log.Info("auth.login.fail", "account_id", truncate(id, account.MaxIDLen))
	s.publish(ctx, events.Event{Type: events.LoginFailed, AccountID: truncate(id, account.MaxIDLen), At: s.now()})
	return ErrUnauthorized
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("events.publish.fail", "type", string(e.Type), "err", err)
	}
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	return s[:n]
}
