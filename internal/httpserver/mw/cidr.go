package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/banners/internal/logger"
	"github.com/MrSnakeDoc/banners/internal/utils"
)

// AllowOnlyCIDRS restricts a route to the given IPs/CIDRs. An empty list does not filter.
// trustProxy resolves the client from proxy headers (cloudflared, reverse proxy).
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debugf("AllowOnlyCIDRS: %d rules, trustProxy=%v", len(allowed), trustProxy)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Warn("request rejected by CIDR filter",
					logger.String("remote_ip", ip),
					logger.String("path", r.URL.Path))
				reject(w, http.StatusForbidden, "Forbidden", "client address not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
