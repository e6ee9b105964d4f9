package app

import (
	"context"
	"os/signal"
	"syscall"

	"classy/cmd/account"
)

// Serve runs the server until SIGINT or SIGTERM.
// It returns an error instead of calling os.Exit so deferred cleanup runs.
func Serve(cfg Config, log Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// CreateAdmin creates the administrator described by in, or updates its
// profile and credentials when it already exists.
func CreateAdmin(ctx context.Context, cfg Config, log Logger, in account.CreateInput) (account.Account, error) {
	a, err := New(ctx, cfg, log)
	if err != nil {
		return account.Account{}, err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("backend.close.fail", "err", err)
		}
	}()

	admin, err := a.Accounts().Bootstrap(ctx, in)
	if err != nil {
		return account.Account{}, err
	}
	log.Info("admin.ready", "id", admin.ID)
	return admin, nil
}
