package mw

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/utils"
)

// cidrGuard answers 403 to clients outside its matcher.
type cidrGuard struct {
	next       http.Handler
	matcher    *utils.IPMatcher
	trustProxy bool
	log        logger.Logger
}

func (g cidrGuard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := utils.ClientIP(r, g.trustProxy)
	if g.matcher.Allow(ip) {
		g.next.ServeHTTP(w, r)
		return
	}

	g.log.Warn("client outside allow-list",
		logger.String("client_ip", ip),
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
		logger.String("request_id", middleware.GetReqID(r.Context())))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
}

// AllowOnlyCIDRS restricts a route to the given IPs and CIDR prefixes. An empty
// list lets every client through. With trustProxy the client address comes from
// CF-Connecting-IP, X-Forwarded-For or X-Real-IP before RemoteAddr.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	guardLog := log.Named("allowlist").With(
		logger.Int("rules", m.Len()),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return cidrGuard{next: next, matcher: m, trustProxy: trustProxy, log: guardLog}
	}
}
