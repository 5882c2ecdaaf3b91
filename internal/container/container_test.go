package container_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/sports-gateway/internal/container"
	"github.com/serroba/sports-gateway/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedTemplate = `subscriptions:
  - id: 7f9c2a52-5d0c-4b8e-9c31-0d3f3c1e6b10
    userId: 0e4d8c53-2f6b-4a0d-8d6e-5b7f1c2a9e44
    sport: football
    active: true
    cycleStartDate: %s
    cycleQuota: 2
    keys:
      - key: football-key
        active: true
      - key: revoked-key
        active: false
`

type gateway struct {
	router        *chi.Mux
	upstreamCalls *atomic.Int32
}

func newGateway(t *testing.T, tweak func(*container.Options)) *gateway {
	t.Helper()

	calls := &atomic.Int32{}
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/football/leagues" {
			_, _ = w.Write([]byte(`{"errors":[],"response":[{"league":{"id":39,"name":"Premier League"}}]}`))

			return
		}

		_, _ = w.Write([]byte(`{"errors":[],"response":[]}`))
	}))
	t.Cleanup(provider.Close)

	seed := filepath.Join(t.TempDir(), "seed.yaml")
	started := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	require.NoError(t, os.WriteFile(seed, []byte(fmt.Sprintf(seedTemplate, started)), 0o600))

	opts := &container.Options{
		LogFormat:              "console",
		LogLevel:               "error",
		CredentialBackend:      container.BackendMemory,
		SeedFile:               seed,
		CacheBackend:           container.BackendMemory,
		RateLimitBackend:       container.BackendMemory,
		RateLimitMax:           100,
		RateLimitWindow:        time.Minute,
		RateLimitSweepInterval: time.Minute,
		IdentityFallback:       "unknown",
		UpstreamURL:            provider.URL + "/{sport}",
		UpstreamTimeout:        time.Second,
		FixturesTTL:            time.Hour,
		CacheSweepInterval:     time.Hour,
		SingleFlight:           true,
		TelemetryTransport:     container.BackendMemory,
		TelemetryQueueSize:     16,
		AdminToken:             "admin-secret",
	}

	if tweak != nil {
		tweak(opts)
	}

	injector := do.New()
	container.Register(injector, opts)

	_ = do.MustInvoke[huma.API](injector)

	background := do.MustInvoke[*worker.Group](injector)
	require.NoError(t, background.Start(t.Context()))

	t.Cleanup(func() { _ = injector.Shutdown() })

	return &gateway{
		router:        do.MustInvoke[*chi.Mux](injector),
		upstreamCalls: calls,
	}
}

func (g *gateway) do(t *testing.T, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	return w
}

func withKey(key string) map[string]string {
	return map[string]string{"X-API-Key": key}
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Meta    struct {
		Cached         bool  `json:"cached"`
		RemainingQuota int64 `json:"remainingQuota"`
	} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())

	return env
}

func TestGateway_CacheAndQuota(t *testing.T) {
	g := newGateway(t, nil)

	first := g.do(t, http.MethodGet, "/football/leagues?country=england", withKey("football-key"))
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.NotEmpty(t, first.Header().Get("X-Request-ID"))
	assert.Equal(t, "100", first.Header().Get("X-RateLimit-Limit"))

	body := decode(t, first)
	assert.True(t, body.Success)
	assert.False(t, body.Meta.Cached)
	assert.JSONEq(t, `[{"league":{"id":39,"name":"Premier League"}}]`, string(body.Data))

	second := g.do(t, http.MethodGet, "/football/leagues?country=england", withKey("football-key"))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.True(t, decode(t, second).Meta.Cached)
	assert.Equal(t, int32(1), g.upstreamCalls.Load(), "second request is served from cache")

	exhausted := g.do(t, http.MethodGet, "/football/leagues?country=england", withKey("football-key"))
	require.Equal(t, http.StatusTooManyRequests, exhausted.Code)
	assert.False(t, decode(t, exhausted).Success)
	assert.NotEmpty(t, exhausted.Header().Get("X-Quota-Reset"))
}

func TestGateway_Rejections(t *testing.T) {
	g := newGateway(t, nil)

	t.Run("missing key", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/football/leagues", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "API key is required", decode(t, w).Error)
	})

	t.Run("revoked key", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/football/leagues", withKey("revoked-key"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("sport outside the subscription", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/basketball/leagues", withKey("football-key"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, decode(t, w).Error, "basketball")
	})

	t.Run("unknown sport fails validation without charging", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/curling/leagues", withKey("football-key"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty detail payload is not found", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/football/teams/999", withKey("football-key"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("quota is untouched by failed requests", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/usage", withKey("football-key"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"remainingQuota":2`)
	})
}

func TestGateway_RateLimit(t *testing.T) {
	g := newGateway(t, func(o *container.Options) {
		o.RateLimitMax = 2
	})

	headers := map[string]string{"X-Forwarded-For": "203.0.113.9"}

	for range 2 {
		assert.Equal(t, http.StatusUnauthorized, g.do(t, http.MethodGet, "/football/leagues", headers).Code)
	}

	w := g.do(t, http.MethodGet, "/football/leagues", headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, g.do(t, http.MethodGet, "/health", headers).Code, "health is never rate limited")
}

func TestGateway_AdminAndOps(t *testing.T) {
	g := newGateway(t, nil)

	require.Equal(t, http.StatusOK, g.do(t, http.MethodGet, "/football/leagues", withKey("football-key")).Code)

	t.Run("flush requires the admin token", func(t *testing.T) {
		w := g.do(t, http.MethodDelete, "/admin/cache/football", map[string]string{"X-Admin-Token": "wrong"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("flush removes the sport's entries", func(t *testing.T) {
		w := g.do(t, http.MethodDelete, "/admin/cache/football", map[string]string{"X-Admin-Token": "admin-secret"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"deleted":1`)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/metrics", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), "gateway_requests_total"))
	})

	t.Run("health reports ok without external dependencies", func(t *testing.T) {
		w := g.do(t, http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})
}

func TestGateway_AdminDisabledWithoutToken(t *testing.T) {
	g := newGateway(t, func(o *container.Options) {
		o.AdminToken = ""
	})

	w := g.do(t, http.MethodDelete, "/admin/cache/football", map[string]string{"X-Admin-Token": ""})

	assert.Equal(t, http.StatusNotFound, w.Code)
}
