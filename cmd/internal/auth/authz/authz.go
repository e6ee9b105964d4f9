// Package authz decides whether an authenticated account may perform an
// action on a target account type.
//
// The gate is a pure function of (actor, action, target). It never touches
// storage; the API layer supplies the resolved actor and the target's type.
package authz

import (
	"errors"
	"log/slog"

	"classy/cmd/account"
	"classy/cmd/internal/metrics"
)

// ErrForbidden is returned by Decision.Err for a denied request.
var ErrForbidden = errors.New("forbidden")

// Action is an operation subject to authorization.
type Action string

const (
	CreateAccount  Action = "create_account"
	DeleteAccount  Action = "delete_account"
	ReadRestricted Action = "read_restricted"
	ReadPublic     Action = "read_public"
	Login          Action = "login"
)

// Decision is the outcome of a check.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// Err returns nil for Allow and ErrForbidden for Deny.
func (d Decision) Err() error {
	if d {
		return nil
	}
	return ErrForbidden
}

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Type account.Type
}

// ActorOf returns the Actor for an authenticated account.
func ActorOf(a account.Account) Actor {
	return Actor{ID: a.ID, Type: a.Type}
}

// Target is the account an action applies to. ID is empty for creation.
type Target struct {
	ID   string
	Type account.Type
}

// Gate evaluates authorization rules.
type Gate struct {
	log     *slog.Logger
	metrics *metrics.Registry
}

// NewGate returns a Gate. log and m may be nil.
func NewGate(log *slog.Logger, m *metrics.Registry) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{log: log, metrics: m}
}

// Check decides whether actor may perform action on target.
//
// Rules:
//   - create and delete: admins only, for every target type;
//   - restricted reads: always for oneself; a student's fields are readable by
//     teachers and admins; a teacher's or admin's fields by admins only;
//   - public reads and login: always.
//
// Unknown actions and actor types are denied.
func (g *Gate) Check(actor Actor, action Action, target Target) Decision {
	d := decide(actor, action, target)
	if g != nil {
		g.metrics.AuthzDecision(string(action), d.String())
		if d == Deny {
			g.log.Debug("authz.deny", "actor_id", actor.ID, "actor_type", actor.Type.String(),
				"action", string(action), "target_type", target.Type.String())
		}
	}
	return d
}

func decide(actor Actor, action Action, target Target) Decision {
	switch action {
	case ReadPublic, Login:
		return Allow
	case CreateAccount, DeleteAccount:
		if !target.Type.Valid() {
			return Deny
		}
		return Decision(actor.Type == account.TypeAdmin)
	case ReadRestricted:
		if actor.ID != "" && actor.ID == target.ID && actor.Type == target.Type {
			return Allow
		}
		return canReadRestricted(actor.Type, target.Type)
	default:
		return Deny
	}
}

func canReadRestricted(actor, target account.Type) Decision {
	switch target {
	case account.TypeStudent:
		return Decision(actor == account.TypeTeacher || actor == account.TypeAdmin)
	case account.TypeTeacher, account.TypeAdmin:
		return Decision(actor == account.TypeAdmin)
	default:
		return Deny
	}
}
