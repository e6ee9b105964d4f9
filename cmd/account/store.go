package account

import "context"

// Store is the account persistence boundary.
//
// Implementations must be safe for concurrent use. Insert must detect duplicate
// ids atomically, and UpdateSessionHash must be a single atomic write so that
// concurrent logins resolve as last-writer-wins.
type Store interface {
	FindByID(ctx context.Context, id string) (Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, id string, u Update) (Account, error)
	UpdateSessionHash(ctx context.Context, id string, hash *string) error
	Delete(ctx context.Context, id string) error

	// Upsert inserts a, or overwrites the credential and contact fields of an
	// existing account with the same id and type. An existing account of a
	// different type is a conflict.
	Upsert(ctx context.Context, a Account) (Account, error)

	Close() error
}
