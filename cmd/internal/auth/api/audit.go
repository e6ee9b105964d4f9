package authapi

import (
	"net/http"
	"strings"

	"classy/cmd/account"
)

const maxUserAgentLen = 256

// audit writes one structured audit line with the caller's network identity.
// Domain events for the same actions are published by the services.
func (h *Handler) audit(r *http.Request, action string, attrs ...any) {
	if h == nil || r == nil {
		return
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	ip := ""
	if v := clientIP(r, h.cfg.TrustProxy); v != nil {
		ip = v.String()
	}
	ua := strings.TrimSpace(r.UserAgent())
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}

	args := append([]any{"action", action, "ip", ip, "user_agent", ua}, attrs...)
	h.log.InfoContext(r.Context(), "auth.audit", args...)
}

// truncateID bounds a caller-supplied id before it is logged.
func truncateID(id string) string {
	id = strings.ToValidUTF8(strings.TrimSpace(id), "")
	if len(id) > account.MaxIDLen {
		return id[:account.MaxIDLen]
	}
	return id
}
