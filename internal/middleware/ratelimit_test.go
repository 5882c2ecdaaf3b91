package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/sports-gateway/internal/middleware"
	"github.com/serroba/sports-gateway/internal/ratelimit"
	"github.com/serroba/sports-gateway/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockLimiter struct {
	decision ratelimit.Decision
	err      error
	identity string
}

func (m *mockLimiter) Admit(_ context.Context, identity string) (ratelimit.Decision, error) {
	m.identity = identity

	return m.decision, m.err
}

func TestRateLimiter(t *testing.T) {
	resetAt := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)

	t.Run("allows request and sets rate limit headers", func(t *testing.T) {
		limiter := &mockLimiter{decision: ratelimit.Decision{
			Allowed: true, Limit: 100, Remaining: 99, ResetAt: resetAt,
		}}
		metrics := &recordingMetrics{}
		mw := middleware.RateLimiter(newTestAPI(), limiter, middleware.NewIdentityFunc(middleware.FallbackUnknown), metrics, zap.NewNop())

		ctx := newMockHumaContext()
		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.True(t, nextCalled, "next should be called when allowed")
		assert.Equal(t, "100", ctx.response["X-RateLimit-Limit"])
		assert.Equal(t, "99", ctx.response["X-RateLimit-Remaining"])
		assert.Equal(t, strconv.FormatInt(resetAt.Unix(), 10), ctx.response["X-RateLimit-Reset"])
		assert.Zero(t, metrics.rateLimited)
	})

	t.Run("returns 429 with retry hints when rejected", func(t *testing.T) {
		limiter := &mockLimiter{decision: ratelimit.Decision{
			Allowed: false, Limit: 100, Remaining: 0, ResetAt: resetAt, RetryAfter: 1500 * time.Millisecond,
		}}
		metrics := &recordingMetrics{}
		mw := middleware.RateLimiter(newTestAPI(), limiter, middleware.NewIdentityFunc(middleware.FallbackUnknown), metrics, zap.NewNop())

		ctx := newMockHumaContext()
		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled, "next should not be called when rate limited")
		assert.Equal(t, http.StatusTooManyRequests, ctx.statusCode)
		assert.Equal(t, "2", ctx.response["Retry-After"])
		assert.Equal(t, 1, metrics.rateLimited)
		assert.Contains(t, string(ctx.written), `"success":false`)
		assert.Contains(t, string(ctx.written), `"retryAfter":2`)
	})

	t.Run("returns 500 when limiter fails", func(t *testing.T) {
		limiter := &mockLimiter{err: errors.New("redis down")}
		mw := middleware.RateLimiter(newTestAPI(), limiter, middleware.NewIdentityFunc(middleware.FallbackUnknown), &recordingMetrics{}, zap.NewNop())

		ctx := newMockHumaContext()
		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled)
		assert.Equal(t, http.StatusInternalServerError, ctx.statusCode)
	})

	t.Run("skips endpoints with rate limiting disabled", func(t *testing.T) {
		limiter := &mockLimiter{decision: ratelimit.Decision{Allowed: false}}
		mw := middleware.RateLimiter(newTestAPI(), limiter, middleware.NewIdentityFunc(middleware.FallbackUnknown), &recordingMetrics{}, zap.NewNop())

		ctx := newMockHumaContext()
		ctx.operation = &huma.Operation{
			Metadata: map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true}},
		}
		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.True(t, nextCalled)
		assert.Empty(t, limiter.identity, "limiter should not be consulted")
	})
}

func TestNewIdentityFunc(t *testing.T) {
	t.Run("uses first X-Forwarded-For address", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.headers["X-Forwarded-For"] = "203.0.113.7, 10.0.0.1"
		ctx.remoteAddr = "10.0.0.2:5555"

		assert.Equal(t, "203.0.113.7", middleware.NewIdentityFunc(middleware.FallbackUnknown)(ctx))
		assert.Equal(t, "203.0.113.7", middleware.NewIdentityFunc(middleware.FallbackRemoteAddr)(ctx))
	})

	t.Run("falls back to the shared unknown bucket", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.remoteAddr = "10.0.0.2:5555"

		assert.Equal(t, middleware.UnknownIdentity, middleware.NewIdentityFunc(middleware.FallbackUnknown)(ctx))
	})

	t.Run("falls back to the connection address when configured", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.remoteAddr = "10.0.0.2:5555"

		assert.Equal(t, "10.0.0.2", middleware.NewIdentityFunc(middleware.FallbackRemoteAddr)(ctx))
	})

	t.Run("remote-addr mode without any address is unknown", func(t *testing.T) {
		ctx := newMockHumaContext()

		assert.Equal(t, middleware.UnknownIdentity, middleware.NewIdentityFunc(middleware.FallbackRemoteAddr)(ctx))
	})
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	limiter := ratelimit.NewFixedWindowLimiter(store.NewRateLimitMemoryStore(), 3, time.Minute, ratelimit.WithClock(clock))

	api.UseMiddleware(middleware.RateLimiter(api, limiter, middleware.NewIdentityFunc(middleware.FallbackUnknown), &recordingMetrics{}, zap.NewNop()))

	huma.Get(api, "/ping", func(_ context.Context, _ *struct{}) (*struct{}, error) {
		return nil, nil
	})

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", ip)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		return w
	}

	for i := range 3 {
		w := call("198.51.100.1")
		require.Equal(t, http.StatusNoContent, w.Code, "request %d", i+1)
	}

	w := call("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, call("198.51.100.2").Code, "other clients keep their own window")

	now = now.Add(time.Minute)

	assert.Equal(t, http.StatusNoContent, call("198.51.100.1").Code, "window resets after it elapses")
}
