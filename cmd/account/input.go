package account

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxIDLen    = 20
	MaxNameLen  = 200
	MaxEmailLen = 254
	MinPhoneLen = 10
	MaxPhoneLen = 15
)

var (
	idRe    = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	phoneRe = regexp.MustCompile(`^\d+$`)
)

// CreateInput describes an account creation (or admin bootstrap) request.
// Password is plaintext and must never be logged.
type CreateInput struct {
	ID       string
	Type     Type
	Name     string
	Email    string
	Phone    string
	Avatar   string
	Password string
}

// Normalize returns a copy with canonicalized fields.
func (in CreateInput) Normalize() CreateInput {
	in.ID = NormalizeID(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Phone = NormalizePhone(strings.TrimSpace(in.Phone))
	in.Avatar = strings.TrimSpace(in.Avatar)
	return in
}

// Validate checks the record fields. The password is checked separately by the
// password policy. The error never names the offending value.
func (in CreateInput) Validate(op string) error {
	if !in.Type.Valid() {
		return invalid(op, "invalid type")
	}
	if err := ValidateID(op, in.ID); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(in.Name); n == 0 || n > MaxNameLen {
		return invalid(op, "invalid name")
	}
	if len(in.Email) == 0 || len(in.Email) > MaxEmailLen {
		return invalid(op, "invalid email")
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return invalid(op, "invalid email")
	}
	if len(in.Phone) < MinPhoneLen || len(in.Phone) > MaxPhoneLen || !phoneRe.MatchString(in.Phone) {
		return invalid(op, "invalid phone")
	}
	if in.Password == "" {
		return invalid(op, "password is required")
	}
	return nil
}

// ValidateID checks an account id's shape.
func ValidateID(op, id string) error {
	if id == "" || len(id) > MaxIDLen || !idRe.MatchString(id) {
		return invalid(op, "invalid id")
	}
	return nil
}
