package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"classy/cmd/account"
)

// backend owns the account store and every connection behind it.
type backend struct {
	store account.Store
	ready ReadyFunc
	redis *redis.Client

	closers []func() error
}

func (b *backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// openBackend opens the account store selected by store.driver.
func openBackend(ctx context.Context, cfg Config, log Logger) (*backend, error) {
	b := &backend{}

	switch cfg.Store.Driver {
	case StoreMemory:
		log.Info("store.memory")
		b.store = account.NewMemoryStore()

	case StorePostgres:
		pool, err := NewDBPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.onClose(func() error { pool.Close(); return nil })

		st, err := account.NewPostgresStore(pool, account.WithSchema(cfg.Database.Schema))
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			_ = b.Close()
			return nil, err
		}
		log.Info("store.postgres", "schema", cfg.Database.Schema)
		b.store = st
		b.ready = func(ctx context.Context) error { return PingDB(ctx, pool, 2*time.Second) }

	case StoreBadger:
		st, err := account.OpenBadgerStore(account.BadgerConfig{Dir: cfg.Badger.Dir, SyncWrites: cfg.Badger.Sync}, log)
		if err != nil {
			return nil, err
		}
		b.onClose(st.Close)
		b.store = st

	case StoreRedis:
		client, err := b.redisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("store.redis")
		b.store = account.NewRedisStore(client)
		b.ready = func(ctx context.Context) error { return client.Ping(ctx).Err() }

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	return b, nil
}

// redisClient returns the backend's Redis client, connecting on first use.
func (b *backend) redisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if b.redis != nil {
		return b.redis, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	b.redis = client
	b.onClose(client.Close)
	return client, nil
}
