package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"classy/cmd/account"
	"classy/cmd/security/credential"
	"classy/cmd/security/password"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store     *account.MemoryStore
	passwords password.Config
	creds     *credential.Generator
	signer    *Signer
	svc       *Service
	clock     *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	passwords, err := password.New(password.MinCost, password.DefaultPolicy())
	if err != nil {
		t.Fatalf("password.New: %v", err)
	}
	creds, err := credential.NewGenerator(passwords)
	if err != nil {
		t.Fatalf("credential.NewGenerator: %v", err)
	}

	clock := newFakeClock()
	store := account.NewMemoryStore()
	signer := NewSigner(DefaultConfig(), WithClock(clock.Now))

	svc, err := NewService(DefaultConfig(), store, passwords, signer, WithServiceClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return &fixture{
		store:     store,
		passwords: passwords,
		creds:     creds,
		signer:    signer,
		svc:       svc,
		clock:     clock,
	}
}

func (f *fixture) createAccount(t *testing.T, id string, typ account.Type, pw string) account.Account {
	t.Helper()

	m, err := f.creds.Generate(pw)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	a, err := f.store.Insert(context.Background(), account.Account{
		ID:        id,
		Type:      typ,
		Name:      "Test " + id,
		Email:     id + "@example.com",
		Phone:     "0123456789",
		AuthHash:  m.AuthHash,
		PublicKey: m.PublicKey,
		SecretKey: m.SecretKey,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return a
}

func (f *fixture) login(t *testing.T, id, pw string) Issued {
	t.Helper()

	issued, err := f.svc.Login(context.Background(), id, pw)
	if err != nil {
		t.Fatalf("Login(%q): %v", id, err)
	}
	return issued
}
