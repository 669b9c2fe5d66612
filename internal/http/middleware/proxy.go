package middleware

//proxy.go
import (
	"net"
	"net/http"
	"strings"

	"cspnonce/internal/core"
)

// TrustedProxy пропускает только запросы от доверенных прокси (IP или CIDR) и
// выставляет схему по X-Forwarded-Proto (OWASP A05: Security Misconfiguration).
func TrustedProxy(trustedIPs []string) func(http.Handler) http.Handler {
	trusted := make([]*net.IPNet, 0, len(trustedIPs))
	for _, s := range trustedIPs {
		_, ipNet, err := net.ParseCIDR(s)
		if err != nil {
			// Для одиночных IP
			ip := net.ParseIP(s)
			if ip == nil {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				ip = v4
			}
			ipNet = &net.IPNet{IP: ip, Mask: net.CIDRMask(8*len(ip), 8*len(ip))}
		}
		trusted = append(trusted, ipNet)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			ip := net.ParseIP(host)
			if ip == nil {
				core.Fail(w, r, core.BadRequest("Неверный адрес клиента", err))
				return
			}

			if !contains(trusted, ip) {
				core.Fail(w, r, core.Forbidden("Недоверенный прокси"))
				return
			}

			if strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
				r.URL.Scheme = "https"
			} else {
				r.URL.Scheme = "http"
			}

			next.ServeHTTP(w, r)
		})
	}
}

func contains(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
