package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
)

const (
	badgerKeyPrefix  = "account:"
	badgerMaxRetries = 10
)

// BadgerStore persists accounts in an embedded Badger database as JSON values
// keyed by "account:<id>". Each mutation runs in one read-write transaction;
// transaction conflicts are retried so concurrent session writes resolve as
// last-writer-wins.
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

// BadgerConfig configures the embedded database.
type BadgerConfig struct {
	// Dir is the data directory. Empty together with InMemory=true runs without disk.
	Dir        string
	InMemory   bool
	SyncWrites bool
}

// OpenBadgerStore opens (or creates) the database described by cfg.
func OpenBadgerStore(cfg BadgerConfig, log *slog.Logger) (*BadgerStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("account: badger dir is required")
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = &badgerLogger{log: log}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("account: open badger: %w", err)
	}
	log.Info("store.badger.open", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return &BadgerStore{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "account.BadgerStore.FindByID"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	var out Account
	err := s.db.View(func(txn *badger.Txn) error {
		a, err := badgerGet(txn, id)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Account{}, s.mapErr(op, id, err)
	}
	return out, nil
}

func (s *BadgerStore) Insert(ctx context.Context, a Account) (Account, error) {
	const op = "account.BadgerStore.Insert"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if a.ID == "" {
		return Account{}, invalid(op, "missing id")
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(a.ID)); err == nil {
			return ConflictError{Op: op, ID: a.ID}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return badgerPut(txn, a)
	})
	if err != nil {
		return Account{}, s.mapErr(op, a.ID, err)
	}
	return a, nil
}

func (s *BadgerStore) Update(ctx context.Context, id string, u Update) (Account, error) {
	const op = "account.BadgerStore.Update"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	var out Account
	err := s.update(ctx, func(txn *badger.Txn) error {
		a, err := badgerGet(txn, id)
		if err != nil {
			return err
		}
		u.apply(&a, time.Now().UTC())
		out = a
		return badgerPut(txn, a)
	})
	if err != nil {
		return Account{}, s.mapErr(op, id, err)
	}
	return out, nil
}

func (s *BadgerStore) UpdateSessionHash(ctx context.Context, id string, hash *string) error {
	const op = "account.BadgerStore.UpdateSessionHash"
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		a, err := badgerGet(txn, id)
		if err != nil {
			return err
		}
		a.SessionHash = cloneString(hash)
		a.UpdatedAt = time.Now().UTC()
		return badgerPut(txn, a)
	})
	return s.mapErr(op, id, err)
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	const op = "account.BadgerStore.Delete"
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(id)); err != nil {
			return err
		}
		return txn.Delete(badgerKey(id))
	})
	return s.mapErr(op, id, err)
}

func (s *BadgerStore) Upsert(ctx context.Context, a Account) (Account, error) {
	const op = "account.BadgerStore.Upsert"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if a.ID == "" {
		return Account{}, invalid(op, "missing id")
	}

	var out Account
	err := s.update(ctx, func(txn *badger.Txn) error {
		now := time.Now().UTC()
		existing, err := badgerGet(txn, a.ID)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			out = a
			if out.CreatedAt.IsZero() {
				out.CreatedAt = now
			}
			out.UpdatedAt = now
		case err != nil:
			return err
		case existing.Type != a.Type:
			return ConflictError{Op: op, ID: a.ID}
		default:
			upsertOnto(&existing, a, now)
			out = existing
		}
		return badgerPut(txn, out)
	})
	if err != nil {
		return Account{}, s.mapErr(op, a.ID, err)
	}
	return out, nil
}

// update runs fn in a read-write transaction, retrying on transaction conflicts.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < badgerMaxRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.log.Debug("store.badger.retry", "attempt", attempt+1)
	}
	return err
}

func (s *BadgerStore) mapErr(op, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return NotFoundError{Op: op, ID: id}
	case IsConflict(err):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func badgerKey(id string) []byte {
	return []byte(badgerKeyPrefix + id)
}

func badgerGet(txn *badger.Txn, id string) (Account, error) {
	item, err := txn.Get(badgerKey(id))
	if err != nil {
		return Account{}, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return Account{}, err
	}
	return decodeRecord(raw)
}

func badgerPut(txn *badger.Txn, a Account) error {
	raw, err := encodeRecord(a)
	if err != nil {
		return err
	}
	return txn.Set(badgerKey(a.ID), raw)
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
