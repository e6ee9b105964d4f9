// Package app wires the Classy server runtime: config, logging, storage,
// events and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"classy/cmd/account"
	authapi "classy/cmd/internal/auth/api"
	"classy/cmd/internal/auth/authz"
	"classy/cmd/internal/auth/session"
	"classy/cmd/internal/metrics"
	"classy/cmd/security/credential"
)

// App is the Classy server runtime.
type App struct {
	cfg Config
	log Logger

	backend  *backend
	metrics  *metrics.Registry
	accounts *account.Service
	sessions *session.Service

	router chi.Router
}

// New constructs a fully wired App. Configuration and the security policy
// are validated before any connection is opened.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	sec, err := ValidateSecurityConfig(cfg)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := wire(ctx, cfg, log, sec, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg Config, log Logger, sec SecurityConfig, b *backend) (*App, error) {
	pub, err := openEvents(ctx, cfg, b, log)
	if err != nil {
		return nil, err
	}

	m := metrics.NewRegistry()

	creds, err := credential.NewGenerator(sec.Passwords)
	if err != nil {
		return nil, err
	}
	accounts, err := account.NewService(b.store, creds,
		account.WithServiceEvents(pub),
		account.WithServiceLogger(log),
		account.WithServiceMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	sessCfg := cfg.SessionConfig()
	sessions, err := session.NewService(sessCfg, b.store, sec.Passwords, session.NewSigner(sessCfg),
		session.WithEvents(pub),
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithFingerprinter(sec.Fingerprints),
	)
	if err != nil {
		return nil, err
	}

	auth, err := authapi.NewHandler(log, authapi.Config{
		TrustProxy:   cfg.HTTP.Proxy,
		MaxBodyBytes: cfg.HTTP.MaxBody,
		LoginRPS:     cfg.RateLimit.RPS,
		LoginBurst:   cfg.RateLimit.Burst,
	}, sessions, accounts, authz.NewGate(log, m), authapi.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	ready := b.ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}

	return &App{
		cfg:      cfg,
		log:      log,
		backend:  b,
		metrics:  m,
		accounts: accounts,
		sessions: sessions,
		router:   newRouter(log, m, ready, auth),
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.router }

// Accounts returns the account service.
func (a *App) Accounts() *account.Service { return a.accounts }

// Close releases storage and event connections.
func (a *App) Close() error { return a.backend.Close() }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       nonZeroDuration(a.cfg.HTTP.Timeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.HTTP.Timeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.HTTP.Idle, 60*time.Second),
		MaxHeaderBytes:    1 << 20,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTP.Addr, "store", a.cfg.Store.Driver, "events", a.cfg.Events.Driver)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		_ = a.Close()
		return err
	}

	if err := a.Close(); err != nil {
		a.log.Error("backend.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
