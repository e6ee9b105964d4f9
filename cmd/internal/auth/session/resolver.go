package session

import (
	"context"
	"fmt"
	"log/slog"

	"classy/cmd/account"
	"classy/cmd/internal/metrics"
)

// Resolution failure steps, recorded server-side only.
const (
	stepSplit    = "split"
	stepLookup   = "lookup"
	stepInactive = "no_session"
	stepVerify   = "verify"
	stepSession  = "session_mismatch"
)

// Resolved is an authenticated account together with its verified claims.
type Resolved struct {
	Account account.Account
	Claims  Claims
}

// Resolver turns a bearer token into an authenticated account.
type Resolver struct {
	accounts account.Store
	signer   *Signer
	hashes   *HashStore
	log      *slog.Logger
	metrics  *metrics.Registry
}

// NewResolver wires a Resolver. log and m may be nil.
func NewResolver(accounts account.Store, signer *Signer, hashes *HashStore, log *slog.Logger, m *metrics.Registry) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{accounts: accounts, signer: signer, hashes: hashes, log: log, metrics: m}
}

// Resolve authenticates token. The steps run in order and all must pass:
//  1. split the token into account id and signed payload;
//  2. load the account, which must have a bound session;
//  3. verify the payload with the account's public key (signature, expiry);
//  4. check the embedded session id against the bound session hash.
//
// Every failure returns ErrUnauthorized. Only store failures other than a
// missing account surface as internal errors.
func (r *Resolver) Resolve(ctx context.Context, token string) (Resolved, error) {
	const op = "session.Resolve"

	accountID, signed, err := SplitToken(token)
	if err != nil {
		return r.fail(stepSplit)
	}

	acct, err := r.accounts.FindByID(ctx, accountID)
	if err != nil {
		if account.IsNotFound(err) {
			return r.fail(stepLookup)
		}
		return Resolved{}, fmt.Errorf("%s: %w", op, err)
	}
	if !acct.HasSession() {
		return r.fail(stepInactive)
	}

	claims, err := r.signer.Verify(acct.PublicKey, signed)
	if err != nil {
		return r.fail(stepVerify)
	}

	if !r.hashes.Check(acct, claims.SessionID) {
		return r.fail(stepSession)
	}

	r.metrics.Resolved()
	return Resolved{Account: acct, Claims: claims}, nil
}

func (r *Resolver) fail(step string) (Resolved, error) {
	r.metrics.ResolveFailed(step)
	r.log.Debug("auth.resolve.fail", "step", step)
	return Resolved{}, ErrUnauthorized
}
