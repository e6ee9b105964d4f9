package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"classy/cmd/account"
	"classy/cmd/internal/auth/authz"
	"classy/cmd/internal/auth/session"
	"classy/cmd/internal/metrics"
)

// Handler wires HTTP endpoints to the session and account services.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions *session.Service
	accounts *account.Service
	gate     *authz.Gate

	limiter *ipLimiter
	metrics *metrics.Registry
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics records rate-limit rejections on m.
func WithMetrics(m *metrics.Registry) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, accounts *account.Service, gate *authz.Gate, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil || accounts == nil || gate == nil {
		return nil, errors.New("authapi: nil dependency")
	}

	cfg = cfg.normalize()
	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		accounts: accounts,
		gate:     gate,
		limiter:  newIPLimiter(cfg.loginLimit(), cfg.LoginBurst),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires the API routes onto r.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}

	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Post("/me/password", h.handleChangePassword)
		r.Post("/{kind}", h.handleCreate)
		r.Delete("/{kind}/{id}", h.handleDelete)
	})

	r.With(h.optionalAuth).Get("/{kind}/{id}", h.handleGet)
}

// ---- authentication ----

type resolvedKey struct{}

func withResolved(ctx context.Context, r session.Resolved) context.Context {
	return context.WithValue(ctx, resolvedKey{}, r)
}

func resolvedFrom(ctx context.Context) (session.Resolved, bool) {
	r, ok := ctx.Value(resolvedKey{}).(session.Resolved)
	return r, ok
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		resolved, err := h.sessions.Resolve(r.Context(), tok)
		if err != nil {
			h.writeServiceError(w, r, "auth.resolve", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withResolved(r.Context(), resolved)))
	})
}

// optionalAuth resolves a bearer token when one is sent. A request without a
// token proceeds anonymously; a request with a bad token is rejected.
func (h *Handler) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		h.requireAuth(next).ServeHTTP(w, r)
	})
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if ok, retryAfter := h.limiter.allow(clientIP(r, h.cfg.TrustProxy)); !ok {
		h.metrics.RateLimited()
		h.audit(r, "auth.login.rate_limited")
		writeRateLimited(w, retryAfter)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeMalformed, "invalid request body")
		return
	}

	issued, err := h.sessions.Login(r.Context(), req.ID, req.Password)
	if err != nil {
		if session.IsUnauthorized(err) {
			h.audit(r, "auth.login.fail", "account_id", truncateID(req.ID))
		}
		h.writeServiceError(w, r, "auth.login", err)
		return
	}
	h.audit(r, "auth.login.ok", "account_id", issued.AccountID)

	writeJSON(w, http.StatusOK, loginResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	resolved, _ := resolvedFrom(r.Context())
	if err := h.sessions.Logout(r.Context(), resolved); err != nil {
		h.writeServiceError(w, r, "auth.logout", err)
		return
	}
	h.audit(r, "auth.logout", "account_id", resolved.Account.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	resolved, _ := resolvedFrom(r.Context())
	writeJSON(w, http.StatusOK, toAccountResponse(resolved.Account))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	resolved, _ := resolvedFrom(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeMalformed, "invalid request body")
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), resolved.Account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeServiceError(w, r, "account.password", err)
		return
	}
	h.audit(r, "account.password.changed", "account_id", resolved.Account.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	typ, ok := parseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}
	resolved, _ := resolvedFrom(r.Context())
	actor := authz.ActorOf(resolved.Account)

	if err := h.gate.Check(actor, authz.CreateAccount, authz.Target{Type: typ}).Err(); err != nil {
		h.audit(r, "account.create.denied", "actor_id", actor.ID, "target_type", typ.String())
		h.writeServiceError(w, r, "account.create", err)
		return
	}

	var req createAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeMalformed, "invalid request body")
		return
	}

	ctx := account.WithActor(r.Context(), actor.ID)
	a, err := h.accounts.Create(ctx, req.input(typ))
	if err != nil {
		h.writeServiceError(w, r, "account.create", err)
		return
	}

	h.audit(r, "account.created", "actor_id", actor.ID, "account_id", a.ID, "account_type", a.Type.String())
	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	typ, ok := parseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}

	a, err := h.accounts.Get(r.Context(), typ, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "account.get", err)
		return
	}

	if resolved, ok := resolvedFrom(r.Context()); ok {
		target := authz.Target{ID: a.ID, Type: a.Type}
		if h.gate.Check(authz.ActorOf(resolved.Account), authz.ReadRestricted, target) == authz.Allow {
			writeJSON(w, http.StatusOK, a.Restricted())
			return
		}
	}
	writeJSON(w, http.StatusOK, a.Public())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	typ, ok := parseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}
	resolved, _ := resolvedFrom(r.Context())
	actor := authz.ActorOf(resolved.Account)

	if err := h.gate.Check(actor, authz.DeleteAccount, authz.Target{Type: typ}).Err(); err != nil {
		h.audit(r, "account.delete.denied", "actor_id", actor.ID, "target_type", typ.String())
		h.writeServiceError(w, r, "account.delete", err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.accounts.Delete(account.WithActor(r.Context(), actor.ID), typ, id); err != nil {
		h.writeServiceError(w, r, "account.delete", err)
		return
	}

	h.audit(r, "account.deleted", "actor_id", actor.ID, "account_id", id, "account_type", typ.String())
	w.WriteHeader(http.StatusNoContent)
}

func toAccountResponse(a account.Account) accountResponse {
	return accountResponse{RestrictedView: a.Restricted(), CreatedAt: a.CreatedAt}
}
