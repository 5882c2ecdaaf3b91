package health

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/sports-gateway/internal/ratelimit"
)

const pingTimeout = 2 * time.Second

// Checker defines the interface for checking service health.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// NewRedisChecker pings a Redis client.
func NewRedisChecker(client redis.UniversalClient) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// NewPostgresChecker pings a Postgres pool.
func NewPostgresChecker(pool *pgxpool.Pool) Checker {
	return CheckerFunc(pool.Ping)
}

// Handler handles health check operations.
type Handler struct {
	names    []string
	checkers map[string]Checker
}

// NewHandler creates a health handler with no dependencies.
func NewHandler() *Handler {
	return &Handler{checkers: make(map[string]Checker)}
}

// Add registers a named dependency. Registering a name twice replaces the checker.
func (h *Handler) Add(name string, checker Checker) *Handler {
	if _, ok := h.checkers[name]; !ok {
		h.names = append(h.names, name)
	}

	h.checkers[name] = checker

	return h
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status       string            `json:"status" enum:"ok,degraded"`
		Dependencies map[string]string `json:"dependencies,omitempty"`
	}
}

// Check performs a health check of the application and its dependencies.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"

	if len(h.names) == 0 {
		return resp, nil
	}

	resp.Body.Dependencies = make(map[string]string, len(h.names))

	for _, name := range h.names {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := h.checkers[name].Ping(pingCtx)

		cancel()

		if err != nil {
			resp.Body.Dependencies[name] = "unhealthy"
			resp.Body.Status = "degraded"

			continue
		}

		resp.Body.Dependencies[name] = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes. Health probes are never rate limited.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Service health",
		Tags:        []string{"Health"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Check)
}
