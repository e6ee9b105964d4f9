package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"classy/cmd/internal/events"
	"classy/cmd/internal/metrics"
	"classy/cmd/security/credential"
	"classy/cmd/security/password"
)

// Credentials mints the security material of an account and checks passwords
// against stored hashes.
type Credentials interface {
	Generate(pw string) (credential.Material, error)
	Passwords() password.Config
}

// Service implements typed account management on top of a Store.
type Service struct {
	store   Store
	creds   Credentials
	events  events.Publisher
	log     *slog.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceEvents sets the domain event publisher.
func WithServiceEvents(p events.Publisher) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithServiceMetrics sets the metrics registry.
func WithServiceMetrics(m *metrics.Registry) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, creds Credentials, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("account: nil store")
	}
	if creds == nil {
		return nil, errors.New("account: nil credential generator")
	}
	s := &Service{
		store:  store,
		creds:  creds,
		events: events.Nop{},
		log:    slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Create validates in, generates credentials and inserts the account.
// A duplicate id is a ConflictError.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	const op = "account.Create"

	a, err := s.build(op, in)
	if err != nil {
		return Account{}, err
	}

	created, err := s.store.Insert(ctx, a)
	if err != nil {
		if IsConflict(err) {
			return Account{}, ConflictError{Op: op, ID: a.ID}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.AccountCreated(created.Type.String())
	s.log.Info("account.created", "account_id", created.ID, "account_type", created.Type.String())
	s.publish(ctx, events.Event{
		Type:        events.AccountCreated,
		AccountID:   created.ID,
		AccountType: created.Type.String(),
		ActorID:     actorFrom(ctx),
		At:          s.now(),
	})
	return created, nil
}

// Get returns the account with id, which must be of type typ.
func (s *Service) Get(ctx context.Context, typ Type, id string) (Account, error) {
	const op = "account.Get"

	id = NormalizeID(id)
	if err := ValidateID(op, id); err != nil {
		return Account{}, NotFoundError{Op: op, ID: id}
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return Account{}, NotFoundError{Op: op, ID: id}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	if a.Type != typ {
		return Account{}, NotFoundError{Op: op, ID: id}
	}
	return a, nil
}

// Delete removes the account with id, which must be of type typ.
func (s *Service) Delete(ctx context.Context, typ Type, id string) error {
	const op = "account.Delete"

	a, err := s.Get(ctx, typ, id)
	if err != nil {
		if IsNotFound(err) {
			return NotFoundError{Op: op, ID: NormalizeID(id)}
		}
		return err
	}
	if err := s.store.Delete(ctx, a.ID); err != nil {
		if IsNotFound(err) {
			return NotFoundError{Op: op, ID: a.ID}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.AccountDeleted(a.Type.String())
	s.log.Info("account.deleted", "account_id", a.ID, "account_type", a.Type.String())
	s.publish(ctx, events.Event{
		Type:        events.AccountDeleted,
		AccountID:   a.ID,
		AccountType: a.Type.String(),
		ActorID:     actorFrom(ctx),
		At:          s.now(),
	})
	return nil
}

// Bootstrap creates the admin described by in, or overwrites the credentials
// and contact fields of an existing admin with the same id. Running it twice
// with the same input is harmless; any previous session is dropped.
func (s *Service) Bootstrap(ctx context.Context, in CreateInput) (Account, error) {
	const op = "account.Bootstrap"

	in.Type = TypeAdmin
	a, err := s.build(op, in)
	if err != nil {
		return Account{}, err
	}

	out, err := s.store.Upsert(ctx, a)
	if err != nil {
		if IsConflict(err) {
			return Account{}, ConflictError{Op: op, ID: a.ID}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("account.bootstrap", "account_id", out.ID)
	return out, nil
}

// ChangePassword checks current against the stored hash and replaces it with a
// hash of next. The key pair is kept; the session is cleared in the same write,
// so every outstanding token stops resolving.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	const op = "account.ChangePassword"

	if current == "" || next == "" {
		return invalid(op, "current and new password are required")
	}

	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return NotFoundError{Op: op, ID: id}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.creds.Passwords().Verify(a.AuthHash, current)
	if err != nil {
		return fmt.Errorf("%s: verify: %w", op, err)
	}
	if !ok {
		return OpError{Op: op, Kind: ErrWrongPassword}
	}

	h, err := s.creds.Passwords().Hash(next)
	if err != nil {
		return credentialError(op, err)
	}

	if _, err := s.store.Update(ctx, a.ID, Update{
		AuthHash:     &h,
		ClearSession: true,
	}); err != nil {
		if IsNotFound(err) {
			return NotFoundError{Op: op, ID: a.ID}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.SessionRevoked()
	s.log.Info("account.password.changed", "account_id", a.ID)
	s.publish(ctx, events.Event{
		Type:        events.PasswordChange,
		AccountID:   a.ID,
		AccountType: a.Type.String(),
		ActorID:     a.ID,
		At:          s.now(),
	})
	return nil
}

func (s *Service) build(op string, in CreateInput) (Account, error) {
	in = in.Normalize()
	if err := in.Validate(op); err != nil {
		return Account{}, err
	}

	m, err := s.generate(op, in.Password)
	if err != nil {
		return Account{}, err
	}

	return Account{
		ID:        in.ID,
		Type:      in.Type,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Avatar:    in.Avatar,
		AuthHash:  m.AuthHash,
		PublicKey: m.PublicKey,
		SecretKey: m.SecretKey,
	}, nil
}

func (s *Service) generate(op, pw string) (credential.Material, error) {
	m, err := s.creds.Generate(pw)
	if err != nil {
		return credential.Material{}, credentialError(op, err)
	}
	return m, nil
}

// credentialError maps policy violations to ErrInvalidInput and wraps the rest.
func credentialError(op string, err error) error {
	if errors.Is(err, password.ErrPasswordTooShort) ||
		errors.Is(err, password.ErrPasswordTooLong) ||
		errors.Is(err, password.ErrWeakPassword) {
		return invalid(op, err.Error())
	}
	return fmt.Errorf("%s: credentials: %w", op, err)
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("events.publish.fail", "type", string(e.Type), "err", err)
	}
}

type actorKey struct{}

// WithActor records the id of the account performing an operation, for audit
// events.
func WithActor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

func actorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}
