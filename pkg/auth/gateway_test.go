package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskchat/pkg/models"
)

func newGateway() *Gateway {
	return &Gateway{
		AllowedOrigins: []string{"https://app.example.com"},
		Limiter:        NewLimiterPool(100, 100),
		UnauthPaths:    DefaultUnauthPaths(),
	}
}

func echoIdentity(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			w.Header().Set("X-User", id.UserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGatewayRequiresToken(t *testing.T) {
	setSecrets(t, "s3cret")
	h := newGateway().Middleware(echoIdentity(t))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/messages", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGatewayValidToken(t *testing.T) {
	setSecrets(t, "s3cret")
	tok, err := MintToken(models.User{ID: "u-9", Username: "bob"})
	require.NoError(t, err)

	h := newGateway().Middleware(echoIdentity(t))
	req := httptest.NewRequest(http.MethodGet, "/v1/chat/messages", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u-9", rr.Header().Get("X-User"))
}

func TestGatewayUnauthPaths(t *testing.T) {
	setSecrets(t, "s3cret")
	h := newGateway().Middleware(echoIdentity(t))

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/v1/auth/login", "/v1/auth/register", "/docs/index.html"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "path %s should not require a token", path)
	}
}

func TestGatewayCORSPreflight(t *testing.T) {
	setSecrets(t, "s3cret")
	h := newGateway().Middleware(echoIdentity(t))

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/messages", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestGatewayDisallowedOrigin(t *testing.T) {
	setSecrets(t, "s3cret")
	h := newGateway().Middleware(echoIdentity(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestGatewayIPWhitelist(t *testing.T) {
	setSecrets(t, "s3cret")
	gw := newGateway()
	gw.IPWhitelist = []string{"10.0.0.1"}
	h := gw.Middleware(echoIdentity(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "192.168.1.50:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGatewayRateLimit(t *testing.T) {
	setSecrets(t, "s3cret")
	gw := newGateway()
	gw.Limiter = NewLimiterPool(1, 2)
	h := gw.Middleware(echoIdentity(t))

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.1.1.1:555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		last = rr.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/faqs", nil)
	req = req.WithContext(WithIdentity(req.Context(), models.Identity{UserID: "u", IsAdmin: false}))
	rr := httptest.NewRecorder()
	handler(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/faqs", nil)
	req = req.WithContext(WithIdentity(req.Context(), models.Identity{UserID: "a", IsAdmin: true}))
	rr = httptest.NewRecorder()
	handler(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
