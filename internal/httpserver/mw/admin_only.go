package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

// AdminOnly guards the operator endpoints (/reload, /metrics) with a
// CIDR allowlist. An empty list leaves them open.
// Enable trustProxy only behind a reverse proxy that sets X-Forwarded-For.
func AdminOnly(cidrs []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	matcher := utils.NewIPMatcher(cidrs)
	if matcher.IsEmpty() {
		log.Warn("admin endpoints are not restricted, set MARKS_ADMIN_CIDRS to limit them")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if matcher.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			log.Warn("admin request rejected",
				logger.String("ip", ip),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path))
			writeError(w, http.StatusForbidden, "Forbidden")
		})
	}
}
