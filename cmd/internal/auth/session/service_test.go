package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"classy/cmd/account"
	"classy/cmd/internal/events"
	"classy/cmd/security/password"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("broker down")
}

func TestLogin_Succeeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")

	issued := f.login(t, "s1", "password123")

	id, signed, err := SplitToken(issued.Token)
	if err != nil {
		t.Fatalf("SplitToken: %v", err)
	}
	if id != "s1" || issued.AccountID != "s1" {
		t.Fatalf("token bound to %q", id)
	}
	if !strings.HasPrefix(signed, "v4.public.") {
		t.Fatalf("unexpected payload %q", signed)
	}
	if want := f.clock.Now().Add(DefaultTTL); !issued.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", issued.ExpiresAt, want)
	}
}

func TestLogin_IDIsTrimmed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")

	if _, err := f.svc.Login(context.Background(), "  s1 ", "password123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLogin_WrongPasswordOrUnknownID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "s1", "wrongpw"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown id: expected ErrUnauthorized, got %v", err)
	}

	a, _ := f.store.FindByID(ctx, "s1")
	if a.HasSession() {
		t.Fatalf("failed login must not bind a session")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for _, tc := range [][2]string{{"", "pw"}, {"s1", ""}, {"   ", "pw"}} {
		if _, err := f.svc.Login(ctx, tc[0], tc[1]); !account.IsInvalidInput(err) {
			t.Fatalf("Login(%q, %q): expected invalid input, got %v", tc[0], tc[1], err)
		}
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "t1", account.TypeTeacher, "password123")
	issued := f.login(t, "t1", "password123")

	r, err := f.svc.Resolve(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Account.ID != "t1" || r.Account.Type != account.TypeTeacher {
		t.Fatalf("resolved %q/%v", r.Account.ID, r.Account.Type)
	}
	if r.Claims.SessionID != issued.SessionID {
		t.Fatalf("sid = %q, want %q", r.Claims.SessionID, issued.SessionID)
	}
}

func TestResolve_SecondLoginInvalidatesFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	ctx := context.Background()

	first := f.login(t, "s1", "password123")
	f.clock.Advance(time.Second)
	second := f.login(t, "s1", "password123")

	if first.SessionID == second.SessionID {
		t.Fatalf("expected distinct session ids")
	}
	if _, err := f.svc.Resolve(ctx, first.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("first token: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.Resolve(ctx, second.Token); err != nil {
		t.Fatalf("second token: %v", err)
	}
}

func TestResolve_ExpiredToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	issued := f.login(t, "s1", "password123")

	f.clock.Advance(DefaultTTL + time.Minute)

	if _, err := f.svc.Resolve(context.Background(), issued.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolve_TamperedToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	issued := f.login(t, "s1", "password123")

	b := []byte(issued.Token)
	i := len(b) - 20
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}

	if _, err := f.svc.Resolve(context.Background(), string(b)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolve_Malformed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for _, tok := range []string{"", "garbage-no-semicolon", ";", "czE;a;b"} {
		if _, err := f.svc.Resolve(ctx, tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("Resolve(%q): expected ErrUnauthorized, got %v", tok, err)
		}
	}
}

func TestResolve_SwappedAccountID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	f.createAccount(t, "a1", account.TypeAdmin, "password456")

	student := f.login(t, "s1", "password123")
	f.login(t, "a1", "password456")

	_, signed, err := SplitToken(student.Token)
	if err != nil {
		t.Fatalf("SplitToken: %v", err)
	}
	forged := EncodeToken("a1", signed)

	if _, err := f.svc.Resolve(context.Background(), forged); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolve_DeletedAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	issued := f.login(t, "s1", "password123")
	ctx := context.Background()

	if err := f.store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, issued.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

type brokenStore struct {
	*account.MemoryStore
}

func (brokenStore) FindByID(context.Context, string) (account.Account, error) {
	return account.Account{}, errors.New("connection reset")
}

func TestResolve_StoreFailureIsNotUnauthorized(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	store := brokenStore{MemoryStore: account.NewMemoryStore()}
	svc, err := NewService(DefaultConfig(), store, f.passwords, f.signer)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Resolve(context.Background(), EncodeToken("s1", "v4.public.x"))
	if err == nil || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected internal error, got %v", err)
	}
	_, err = svc.Login(context.Background(), "s1", "password123")
	if err == nil || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected internal error from Login, got %v", err)
	}
}

// textStore rejects ids the way a UTF-8 text column does and records every id
// that reached it.
type textStore struct {
	*account.MemoryStore

	mu   sync.Mutex
	seen []string
}

func (s *textStore) FindByID(ctx context.Context, id string) (account.Account, error) {
	s.mu.Lock()
	s.seen = append(s.seen, id)
	s.mu.Unlock()
	if !utf8.ValidString(id) || strings.ContainsRune(id, 0) {
		return account.Account{}, errors.New(`invalid byte sequence for encoding "UTF8" (SQLSTATE 22021)`)
	}
	return s.MemoryStore.FindByID(ctx, id)
}

func TestService_BadIDsNeverReachStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	store := &textStore{MemoryStore: account.NewMemoryStore()}
	svc, err := NewService(DefaultConfig(), store, f.passwords, f.signer)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	for _, id := range []string{"a\x00b", "\xff\xfe", strings.Repeat("x", account.MaxIDLen+1)} {
		if _, err := svc.Resolve(ctx, EncodeToken(id, "v4.public.x")); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("Resolve(id %q): expected ErrUnauthorized, got %v", id, err)
		}
		if _, err := svc.Login(ctx, id, "password123"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("Login(id %q): expected ErrUnauthorized, got %v", id, err)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.seen) != 0 {
		t.Fatalf("store saw ids %q", store.seen)
	}
}

// vanishingStore loses the account between the password check and the
// session write.
type vanishingStore struct {
	*account.MemoryStore
}

func (s vanishingStore) UpdateSessionHash(ctx context.Context, id string, _ *string) error {
	if err := s.MemoryStore.Delete(ctx, id); err != nil {
		return err
	}
	return account.NotFoundError{Op: "test.UpdateSessionHash", ID: id}
}

func TestLogin_AccountDeletedMidLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	svc, err := NewService(DefaultConfig(), vanishingStore{MemoryStore: f.store}, f.passwords, f.signer)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Login(context.Background(), "s1", "password123")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if account.IsNotFound(err) {
		t.Fatalf("not-found leaked to caller: %v", err)
	}
}

func TestLogout_InvalidatesToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	issued := f.login(t, "s1", "password123")
	ctx := context.Background()

	r, err := f.svc.Resolve(ctx, issued.Token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := f.svc.Logout(ctx, r); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, issued.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}

	// Logging in again works after logout.
	again := f.login(t, "s1", "password123")
	if _, err := f.svc.Resolve(ctx, again.Token); err != nil {
		t.Fatalf("Resolve after relogin: %v", err)
	}
}

func TestService_PublishesEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	pub := &recordingPublisher{}
	svc, err := NewService(DefaultConfig(), f.store, f.passwords, f.signer, WithEvents(pub), WithServiceClock(f.clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.Login(ctx, "s1", "nope-nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	issued, err := svc.Login(ctx, "s1", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	r, err := svc.Resolve(ctx, issued.Token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := svc.Logout(ctx, r); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	got := pub.types()
	want := []events.Type{events.LoginFailed, events.SessionCreated, events.SessionRevoked}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	for _, e := range pub.events {
		if e.SessionFingerprint == issued.SessionID {
			t.Fatalf("raw session id published")
		}
	}
}

func TestService_PublishFailureDoesNotFailLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	svc, err := NewService(DefaultConfig(), f.store, f.passwords, f.signer, WithEvents(failingPublisher{}), WithServiceClock(f.clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.Login(context.Background(), "s1", "password123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestNewService_RequiresCost(t *testing.T) {
	t.Parallel()

	_, err := NewService(DefaultConfig(), account.NewMemoryStore(), password.Config{Policy: password.DefaultPolicy()}, NewSigner(DefaultConfig()))
	if !errors.Is(err, password.ErrCostMissing) {
		t.Fatalf("expected ErrCostMissing, got %v", err)
	}
}

func TestLogin_ConcurrentLastWriterWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.createAccount(t, "s1", account.TypeStudent, "password123")
	ctx := context.Background()

	const n = 4
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issued, err := f.svc.Login(ctx, "s1", "password123")
			if err != nil {
				t.Errorf("Login: %v", err)
				return
			}
			tokens[i] = issued.Token
		}(i)
	}
	wg.Wait()

	valid := 0
	for _, tok := range tokens {
		if _, err := f.svc.Resolve(ctx, tok); err == nil {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("expected exactly one live token, got %d", valid)
	}
}
