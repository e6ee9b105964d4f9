package authapi

import (
	"errors"
	"net/http"

	"classy/cmd/account"
	"classy/cmd/internal/auth/authz"
	"classy/cmd/internal/auth/session"
)

// writeServiceError maps a service error to its HTTP status and stable code.
// Internal errors are logged with detail and surfaced without it.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case account.IsInvalidInput(err), errors.Is(err, session.ErrMalformedToken):
		writeError(w, http.StatusBadRequest, codeMalformed, "malformed request")
	case errors.Is(err, session.ErrUnauthorized), errors.Is(err, account.ErrWrongPassword):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	case errors.Is(err, authz.ErrForbidden):
		writeError(w, http.StatusForbidden, codeUnauthorized, "unauthorized")
	case errors.Is(err, account.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, "already exists")
	case account.IsNotFound(err):
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	default:
		h.log.ErrorContext(r.Context(), op+".fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
