package account

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and the dev server when no
// database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	now      func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "account.MemoryStore.FindByID"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundError{Op: op, ID: id}
	}
	return cloneAccount(a), nil
}

func (s *MemoryStore) Insert(ctx context.Context, a Account) (Account, error) {
	const op = "account.MemoryStore.Insert"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if a.ID == "" {
		return Account{}, invalid(op, "missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return Account{}, ConflictError{Op: op, ID: a.ID}
	}
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.accounts[a.ID] = cloneAccount(a)
	return cloneAccount(a), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, u Update) (Account, error) {
	const op = "account.MemoryStore.Update"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundError{Op: op, ID: id}
	}
	u.apply(&a, s.now())
	s.accounts[id] = a
	return cloneAccount(a), nil
}

func (s *MemoryStore) UpdateSessionHash(ctx context.Context, id string, hash *string) error {
	const op = "account.MemoryStore.UpdateSessionHash"
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return NotFoundError{Op: op, ID: id}
	}
	a.SessionHash = cloneString(hash)
	a.UpdatedAt = s.now()
	s.accounts[id] = a
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	const op = "account.MemoryStore.Delete"
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return NotFoundError{Op: op, ID: id}
	}
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, a Account) (Account, error) {
	const op = "account.MemoryStore.Upsert"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if a.ID == "" {
		return Account{}, invalid(op, "missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.accounts[a.ID]
	if !ok {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
		s.accounts[a.ID] = cloneAccount(a)
		return cloneAccount(a), nil
	}
	if existing.Type != a.Type {
		return Account{}, ConflictError{Op: op, ID: a.ID}
	}
	upsertOnto(&existing, a, now)
	s.accounts[a.ID] = existing
	return cloneAccount(existing), nil
}

func cloneAccount(a Account) Account {
	a.SessionHash = cloneString(a.SessionHash)
	return a
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
