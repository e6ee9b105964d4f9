package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"classy/cmd/account"
	"classy/cmd/security/password"
)

func TestHashStore_BindCheckClear(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.createAccount(t, "s1", account.TypeStudent, "password123")

	hs, err := NewHashStore(f.store, f.passwords)
	if err != nil {
		t.Fatalf("NewHashStore: %v", err)
	}

	if err := hs.Bind(ctx, "s1", "sid-one"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	a, err := f.store.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !a.HasSession() {
		t.Fatalf("expected bound session")
	}
	if strings.Contains(*a.SessionHash, "sid-one") {
		t.Fatalf("session id stored in plaintext")
	}
	if !hs.Check(a, "sid-one") {
		t.Fatalf("Check(sid-one) = false")
	}
	if hs.Check(a, "sid-two") || hs.Check(a, "") {
		t.Fatalf("Check accepted a foreign session id")
	}

	if err := hs.Bind(ctx, "s1", "sid-two"); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	a, _ = f.store.FindByID(ctx, "s1")
	if hs.Check(a, "sid-one") {
		t.Fatalf("rebind must supersede the previous session")
	}
	if !hs.Check(a, "sid-two") {
		t.Fatalf("Check(sid-two) = false")
	}

	if err := hs.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	a, _ = f.store.FindByID(ctx, "s1")
	if a.HasSession() || hs.Check(a, "sid-two") {
		t.Fatalf("expected cleared session")
	}
}

func TestHashStore_UnknownAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hs, err := NewHashStore(f.store, f.passwords)
	if err != nil {
		t.Fatalf("NewHashStore: %v", err)
	}
	if err := hs.Bind(context.Background(), "ghost", "sid"); !account.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewHashStore_RequiresCost(t *testing.T) {
	t.Parallel()

	_, err := NewHashStore(account.NewMemoryStore(), password.Config{Policy: password.DefaultPolicy()})
	if !errors.Is(err, password.ErrCostMissing) {
		t.Fatalf("expected ErrCostMissing, got %v", err)
	}
}
