package session

import (
	"context"
	"fmt"

	"classy/cmd/account"
	"classy/cmd/security/password"
)

// HashStore binds an account's single live session. Session ids are never
// stored in plaintext: the bound value is a bcrypt hash produced with the same
// cost-factored primitive as passwords.
type HashStore struct {
	accounts  account.Store
	passwords password.Config
}

// NewHashStore requires a configured password primitive.
func NewHashStore(accounts account.Store, passwords password.Config) (*HashStore, error) {
	if accounts == nil {
		return nil, fmt.Errorf("session: nil account store")
	}
	if passwords.Cost == 0 {
		return nil, password.ErrCostMissing
	}
	return &HashStore{accounts: accounts, passwords: passwords}, nil
}

// Bind stores hash(sessionID) on the account in a single update, replacing any
// previous session. Concurrent binds resolve as last-writer-wins.
func (h *HashStore) Bind(ctx context.Context, accountID, sessionID string) error {
	hash, err := h.passwords.HashSecret(sessionID)
	if err != nil {
		return fmt.Errorf("session: hash session id: %w", err)
	}
	return h.accounts.UpdateSessionHash(ctx, accountID, &hash)
}

// Check reports whether sessionID is the account's bound session.
func (h *HashStore) Check(a account.Account, sessionID string) bool {
	if !a.HasSession() || sessionID == "" {
		return false
	}
	ok, err := h.passwords.Verify(*a.SessionHash, sessionID)
	return err == nil && ok
}

// Clear drops the account's session; every outstanding token becomes invalid.
func (h *HashStore) Clear(ctx context.Context, accountID string) error {
	return h.accounts.UpdateSessionHash(ctx, accountID, nil)
}
