package account

import (
	"fmt"
	"strings"
	"time"
)

// Type is the closed set of account kinds. It is immutable after creation and
// determines the account's authorization tier.
type Type string

const (
	TypeAdmin   Type = "admin"
	TypeStudent Type = "student"
	TypeTeacher Type = "teacher"
)

// Types lists every valid account type.
var Types = []Type{TypeAdmin, TypeStudent, TypeTeacher}

// ParseType parses a case-insensitive account type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", OpError{Op: "account.ParseType", Kind: ErrInvalidInput, Msg: fmt.Sprintf("unknown account type %q", s)}
	}
	return t, nil
}

// Valid reports whether t is one of the known account types.
func (t Type) Valid() bool {
	switch t {
	case TypeAdmin, TypeStudent, TypeTeacher:
		return true
	default:
		return false
	}
}

func (t Type) String() string { return string(t) }

// Account is Classy's canonical security principal.
//
// SecretKey and AuthHash are server-side only: they must never be serialized to
// clients or written to logs. SessionHash is nil when no session is active.
type Account struct {
	ID   string
	Type Type

	Name   string
	Email  string
	Phone  string
	Avatar string

	AuthHash  string
	PublicKey string
	SecretKey string

	SessionHash *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSession reports whether the account currently has a bound session.
func (a Account) HasSession() bool {
	return a.SessionHash != nil && *a.SessionHash != ""
}

// PublicView is the projection any caller may read.
type PublicView struct {
	ID     string `json:"id"`
	Type   Type   `json:"type"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// RestrictedView adds contact fields, readable only when authorized.
type RestrictedView struct {
	PublicView
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Public returns the public projection of the account.
func (a Account) Public() PublicView {
	return PublicView{ID: a.ID, Type: a.Type, Name: a.Name, Avatar: a.Avatar}
}

// Restricted returns the public projection plus contact fields.
func (a Account) Restricted() RestrictedView {
	return RestrictedView{PublicView: a.Public(), Email: a.Email, Phone: a.Phone}
}

// Update is a partial field update. Nil fields are left unchanged.
// ID, Type and SessionHash are not updatable here; the session hash has its own
// single-write path (Store.UpdateSessionHash).
type Update struct {
	Name   *string
	Email  *string
	Phone  *string
	Avatar *string

	AuthHash  *string
	PublicKey *string
	SecretKey *string

	// ClearSession drops the active session as part of the same write.
	ClearSession bool
}

func (u Update) apply(a *Account, now time.Time) {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
	if u.Avatar != nil {
		a.Avatar = *u.Avatar
	}
	if u.AuthHash != nil {
		a.AuthHash = *u.AuthHash
	}
	if u.PublicKey != nil {
		a.PublicKey = *u.PublicKey
	}
	if u.SecretKey != nil {
		a.SecretKey = *u.SecretKey
	}
	if u.ClearSession {
		a.SessionHash = nil
	}
	a.UpdatedAt = now
}

// upsertOnto copies the bootstrap-updatable fields of src onto dst, keeping
// dst's identity, type and creation time. The session is dropped since the
// credentials change.
func upsertOnto(dst *Account, src Account, now time.Time) {
	dst.Name = src.Name
	dst.Email = src.Email
	dst.Phone = src.Phone
	dst.Avatar = src.Avatar
	dst.AuthHash = src.AuthHash
	dst.PublicKey = src.PublicKey
	dst.SecretKey = src.SecretKey
	dst.SessionHash = nil
	dst.UpdatedAt = now
}
