package auth

import (
	"net"
	"net/http"
	"strings"

	"deskchat/pkg/logger"
	"deskchat/pkg/models"
	"deskchat/pkg/utils"
)

// Gateway is the HTTP front middleware: CORS, IP whitelist, rate
// limiting and token verification, in that order.
type Gateway struct {
	AllowedOrigins []string
	IPWhitelist    []string
	Limiter        *LimiterPool
	// UnauthPaths are exact request paths served without a token.
	UnauthPaths map[string]bool
}

// DefaultUnauthPaths lists the endpoints that never require a token.
func DefaultUnauthPaths() map[string]bool {
	return map[string]bool{
		"/healthz":          true,
		"/readyz":           true,
		"/metrics":          true,
		"/openapi.yaml":     true,
		"/v1/auth/login":    true,
		"/v1/auth/register": true,
	}
}

func (g *Gateway) originAllowed(origin string) bool {
	for _, o := range g.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (g *Gateway) ipAllowed(remote string) bool {
	if len(g.IPWhitelist) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	for _, ip := range g.IPWhitelist {
		if ip == host {
			return true
		}
	}
	return false
}

func (g *Gateway) unauth(path string) bool {
	if g.UnauthPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/docs")
}

// Middleware wraps next with the gateway checks and stores the verified
// identity in the request context.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.LogRequest(r)
		if origin := r.Header.Get("Origin"); origin != "" && g.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !g.ipAllowed(r.RemoteAddr) {
			logger.Warn("gateway_ip_rejected", "remote", r.RemoteAddr)
			utils.JSONError(w, http.StatusForbidden, "forbidden")
			return
		}

		if g.unauth(r.URL.Path) {
			if g.Limiter != nil && !g.Limiter.Allow(limiterKey(r, nil)) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			utils.JSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := VerifyToken(token)
		if err != nil {
			logger.Debug("gateway_token_rejected", "err", err)
			utils.JSONError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		id := models.Identity{UserID: claims.UserID, Username: claims.Username, IsAdmin: claims.IsAdmin}

		if g.Limiter != nil && !g.Limiter.Allow(limiterKey(r, &id)) {
			utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func limiterKey(r *http.Request, id *models.Identity) string {
	if id != nil && id.UserID != "" {
		return "user:" + id.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RequireAdmin wraps a handler so only admin identities reach it.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			utils.JSONError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}
