package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/sports-gateway/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	err error
}

func (m *mockChecker) Ping(_ context.Context) error {
	return m.err
}

func TestHandler_Check(t *testing.T) {
	t.Run("returns ok without dependencies", func(t *testing.T) {
		resp, err := health.NewHandler().Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Empty(t, resp.Body.Dependencies)
	})

	t.Run("returns ok when every dependency is healthy", func(t *testing.T) {
		handler := health.NewHandler().
			Add("redis", &mockChecker{}).
			Add("postgres", &mockChecker{})

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Equal(t, map[string]string{"redis": "healthy", "postgres": "healthy"}, resp.Body.Dependencies)
	})

	t.Run("returns degraded when one dependency is unhealthy", func(t *testing.T) {
		handler := health.NewHandler().
			Add("redis", &mockChecker{}).
			Add("postgres", &mockChecker{err: errors.New("connection refused")})

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "degraded", resp.Body.Status)
		assert.Equal(t, "healthy", resp.Body.Dependencies["redis"])
		assert.Equal(t, "unhealthy", resp.Body.Dependencies["postgres"])
	})

	t.Run("replaces a checker registered twice", func(t *testing.T) {
		handler := health.NewHandler().
			Add("redis", &mockChecker{err: errors.New("down")}).
			Add("redis", &mockChecker{})

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Len(t, resp.Body.Dependencies, 1)
	})
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	checker := health.NewRedisChecker(client)

	t.Run("Ping returns nil when redis is available", func(t *testing.T) {
		assert.NoError(t, checker.Ping(context.Background()))
	})

	t.Run("Ping fails when redis is gone", func(t *testing.T) {
		mr.Close()

		assert.Error(t, checker.Ping(context.Background()))
	})
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))

	health.RegisterRoutes(api, health.NewHandler().Add("redis", &mockChecker{}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "healthy", body.Dependencies["redis"])
}
