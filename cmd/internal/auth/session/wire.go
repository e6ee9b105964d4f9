package session

import (
	"encoding/base64"
	"strings"

	"classy/cmd/account"
)

// TokenSeparator splits the account id part from the signed payload.
const TokenSeparator = ";"

// EncodeToken builds the wire token: unpadded base64url(accountID) + ";" + signed.
func EncodeToken(accountID, signed string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(accountID)) + TokenSeparator + signed
}

// SplitToken reverses EncodeToken. The returned account id has a valid shape
// but stays untrusted until the signature is verified against that account's
// public key.
func SplitToken(token string) (accountID, signed string, err error) {
	idPart, signed, ok := strings.Cut(token, TokenSeparator)
	if !ok || idPart == "" || signed == "" || strings.Contains(signed, TokenSeparator) {
		return "", "", ErrMalformedToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(idPart)
	if err != nil || account.ValidateID("session.SplitToken", string(raw)) != nil {
		return "", "", ErrMalformedToken
	}
	return string(raw), signed, nil
}
