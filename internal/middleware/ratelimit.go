package middleware

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/sports-gateway/internal/handlers"
	"github.com/serroba/sports-gateway/internal/ratelimit"
	"go.uber.org/zap"
)

// UnknownIdentity is the bucket shared by clients without a forwarded address.
const UnknownIdentity = "unknown"

// Identity fallback modes.
const (
	FallbackUnknown    = "unknown"
	FallbackRemoteAddr = "remote-addr"
)

// IdentityFunc derives the rate limit identity of a request.
type IdentityFunc func(ctx huma.Context) string

// NewIdentityFunc returns an IdentityFunc that prefers X-Forwarded-For.
// Without it, FallbackRemoteAddr keys on the connection address and any
// other mode puts the request in the shared UnknownIdentity bucket.
func NewIdentityFunc(fallback string) IdentityFunc {
	return func(ctx huma.Context) string {
		if ip := forwardedIP(ctx); ip != "" {
			return ip
		}

		if fallback == FallbackRemoteAddr {
			if ip := remoteIP(ctx); ip != "" {
				return ip
			}
		}

		return UnknownIdentity
	}
}

// RateLimiter returns a Huma middleware that throttles requests per client identity.
// Admitted requests carry X-RateLimit-* headers; rejected ones also get Retry-After.
func RateLimiter(
	api huma.API,
	limiter ratelimit.Limiter,
	identify IdentityFunc,
	metrics Metrics,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		identity := identify(ctx)

		decision, err := limiter.Admit(ctx.Context(), identity)
		if err != nil {
			logger.Error("rate limit check failed",
				zap.String("identity", identity),
				zap.Error(err),
			)
			_ = handlers.WriteError(api, ctx, handlers.FromError(err))

			return
		}

		ctx.SetHeader("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		ctx.SetHeader("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		ctx.SetHeader("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			metrics.RateLimited()
			logger.Warn("rate limit exceeded",
				zap.String("identity", identity),
				zap.String("method", ctx.Method()),
				zap.Int64("limit", decision.Limit),
				zap.Duration("retry_after", decision.RetryAfter),
			)

			ctx.SetHeader("Retry-After", strconv.FormatInt(handlers.RetryAfterSeconds(decision.RetryAfter), 10))
			_ = handlers.WriteError(api, ctx, handlers.RateLimited(decision))

			return
		}

		next(ctx)
	}
}
