package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate applies the length policy in characters, plus bcrypt's 72-byte
// input limit, and the optional weak-password check.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)

	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength || len(password) > maxSecretBytes {
		return ErrPasswordTooLong
	}

	if c.Policy.RejectVeryWeak && looksVeryWeak(password) {
		return ErrWeakPassword
	}
	return nil
}

// commonPasswords are rejected outright when RejectVeryWeak is set.
var commonPasswords = map[string]struct{}{
	"password": {}, "password123": {}, "123456": {}, "123456789": {},
	"qwerty": {}, "qwerty123": {}, "11111111": {}, "letmein": {},
}

// looksVeryWeak catches a repeated single character, short all-digit
// passwords and a handful of common choices. It is not a strength estimator.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	first, _ := utf8.DecodeRuneInString(s)
	if strings.Count(s, string(first)) == utf8.RuneCountInString(s) {
		return true
	}
	if strings.TrimFunc(s, unicode.IsDigit) == "" && utf8.RuneCountInString(s) < 12 {
		return true
	}
	_, common := commonPasswords[strings.ToLower(s)]
	return common
}
