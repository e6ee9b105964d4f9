package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisMaxRetries = 10

// RedisStore persists accounts in Redis as JSON strings under "<prefix><id>".
// Read-modify-write operations use WATCH/MULTI optimistic transactions.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store. The client is owned by the caller.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "classy:account:",
	}
}

// Close is a no-op: the client belongs to the caller.
func (s *RedisStore) Close() error { return nil }

func (s *RedisStore) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "account.RedisStore.FindByID"

	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Account{}, NotFoundError{Op: op, ID: id}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	a, err := decodeRecord(raw)
	if err != nil {
		return Account{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	return a, nil
}

func (s *RedisStore) Insert(ctx context.Context, a Account) (Account, error) {
	const op = "account.RedisStore.Insert"
	if a.ID == "" {
		return Account{}, invalid(op, "missing id")
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	raw, err := encodeRecord(a)
	if err != nil {
		return Account{}, fmt.Errorf("%s: encode: %w", op, err)
	}
	ok, err := s.client.SetNX(ctx, s.key(a.ID), raw, 0).Result()
	if err != nil {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return Account{}, ConflictError{Op: op, ID: a.ID}
	}
	return a, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, u Update) (Account, error) {
	const op = "account.RedisStore.Update"

	var out Account
	err := s.modify(ctx, op, id, func(a *Account, found bool) error {
		if !found {
			return NotFoundError{Op: op, ID: id}
		}
		u.apply(a, time.Now().UTC())
		out = *a
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return out, nil
}

func (s *RedisStore) UpdateSessionHash(ctx context.Context, id string, hash *string) error {
	const op = "account.RedisStore.UpdateSessionHash"

	return s.modify(ctx, op, id, func(a *Account, found bool) error {
		if !found {
			return NotFoundError{Op: op, ID: id}
		}
		a.SessionHash = cloneString(hash)
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	const op = "account.RedisStore.Delete"

	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return NotFoundError{Op: op, ID: id}
	}
	return nil
}

func (s *RedisStore) Upsert(ctx context.Context, a Account) (Account, error) {
	const op = "account.RedisStore.Upsert"
	if a.ID == "" {
		return Account{}, invalid(op, "missing id")
	}

	var out Account
	err := s.modify(ctx, op, a.ID, func(existing *Account, found bool) error {
		now := time.Now().UTC()
		switch {
		case !found:
			*existing = a
			if existing.CreatedAt.IsZero() {
				existing.CreatedAt = now
			}
			existing.UpdatedAt = now
		case existing.Type != a.Type:
			return ConflictError{Op: op, ID: a.ID}
		default:
			upsertOnto(existing, a, now)
		}
		out = *existing
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return out, nil
}

// modify loads the record under WATCH, applies fn, and writes it back in a
// MULTI block. A concurrent write to the key aborts the transaction and the
// whole cycle is retried.
func (s *RedisStore) modify(ctx context.Context, op, id string, fn func(a *Account, found bool) error) error {
	key := s.key(id)

	txf := func(tx *redis.Tx) error {
		var (
			a     Account
			found bool
		)
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if a, err = decodeRecord(raw); err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			found = true
		}

		if err := fn(&a, found); err != nil {
			return err
		}

		next, err := encodeRecord(a)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMaxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case IsConflict(err), IsNotFound(err):
			return err
		default:
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, redis.TxFailedErr)
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
