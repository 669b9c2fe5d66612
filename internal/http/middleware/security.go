// security.go
package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders выставляет заголовки безопасности через unrolled/secure (OWASP A05).
// Content-Security-Policy здесь не формируется: nonce для него публикуется в
// окружении запроса (CSP_NONCE), а политику строит тот, кто её отдаёт.
func SecureHeaders(isProduction, tls bool) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:               true,
		ContentTypeNosniff:      true,
		ReferrerPolicy:          "strict-origin-when-cross-origin",
		PermissionsPolicy:       "camera=(), microphone=(), geolocation=(), payment=()",
		CrossOriginOpenerPolicy: "same-origin",
		STSSeconds:              31536000,
		STSIncludeSubdomains:    true,
		STSPreload:              isProduction,
		SSLProxyHeaders:         map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:           !tls,
	})
	return s.Handler
}
