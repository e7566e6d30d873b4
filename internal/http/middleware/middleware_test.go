package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rogerio-castellano/shopnesty/internal/auth"
	rl "github.com/rogerio-castellano/shopnesty/internal/http/rate_limiter"
	"github.com/rogerio-castellano/shopnesty/internal/metrics"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]auth.Identity

func (s stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return auth.Identity{}, errors.New("unknown token")
	}
	return id, nil
}

func withVerifier(t *testing.T, v auth.Verifier) {
	t.Helper()
	prev := verifier
	SetVerifier(v)
	t.Cleanup(func() { SetVerifier(prev) })
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())
		_, _ = w.Write([]byte(id.UserID + ":" + id.Role))
	})
}

func TestAuthenticate(t *testing.T) {
	withVerifier(t, stubVerifier{
		"good": {UserID: "u1", Username: "ana", Role: models.RoleCustomer},
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "u1:customer"},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, "invalid token"},
		{"missing header", "", http.StatusUnauthorized, "missing or invalid token"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "missing or invalid token"},
	}

	h := Authenticate(identityEcho())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(identityEcho())

	t.Run("no identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Role: models.RoleCustomer}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("allowed role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "a1", Role: models.RoleAdmin}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "a1:admin", w.Body.String())
	})
}

func TestRateLimit(t *testing.T) {
	rl.Configure(1, 2)
	t.Cleanup(func() { rl.Configure(1000, 1000) })

	h := RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.RemoteAddr = "10.0.0.8:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:4242"
	assert.Equal(t, "192.168.1.10", clientKey(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientKey(req))
}

func TestRequestLogger_RecordsRoutePattern(t *testing.T) {
	reg := metrics.NewRegistry()
	SetMetrics(reg)
	t.Cleanup(func() { SetMetrics(nil) })

	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/products/a", "/products/b", "/healthz"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.Requests.WithLabelValues("GET", "/products/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Requests.WithLabelValues("GET", "/healthz", "200")))
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	t.Run("disabled without origins", func(t *testing.T) {
		SetCORSOrigins(nil)
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		w := httptest.NewRecorder()
		CORS()(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	SetCORSOrigins([]string{"https://shop.example.com"})
	t.Cleanup(func() { SetCORSOrigins(nil) })
	h := CORS()(next)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/cart/checkout", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.True(t, strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost))
		assert.NotEqual(t, "ok", w.Body.String())
	})
}
