package middleware

import (
	"crypto/sha256"
	"net/http"

	"cspnonce/internal/core"

	"github.com/gorilla/csrf"
)

// CSRF защищает формы gorilla/csrf (OWASP A01). Ключ — 32 байта, выведенные из секрета.
// Без TLS запрос помечается как plaintext, иначе csrf требует https-Referer.
func CSRF(secret string, secureCookie bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		derive32(secret),
		csrf.Secure(secureCookie),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
	)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secureCookie {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	ae := core.Forbidden("CSRF token invalid")
	ae.Err = csrf.FailureReason(r)
	core.Fail(w, r, ae)
}

// derive32 — 32-байтовый ключ CSRF из секрета (OWASP A02)
func derive32(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
