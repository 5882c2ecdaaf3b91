package middleware

import (
	"net"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/sports-gateway/internal/handlers"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestMeta is a middleware that attaches request-scoped state to the context.
// An incoming X-Request-ID is reused, otherwise newID generates one.
func RequestMeta(newID func() string, now func() time.Time) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := ctx.Header(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = newID()
		}

		meta := &handlers.RequestMeta{
			RequestID: requestID,
			ClientIP:  extractClientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			StartedAt: now(),
		}

		ctx.SetHeader(RequestIDHeader, requestID)

		next(huma.WithContext(ctx, handlers.ContextWithRequestMeta(ctx.Context(), meta)))
	}
}

// requestMeta returns the request state on ctx, attaching a fresh one if the
// RequestMeta middleware did not run.
func requestMeta(ctx huma.Context) (huma.Context, *handlers.RequestMeta) {
	if meta, ok := handlers.LookupRequestMeta(ctx.Context()); ok {
		return ctx, meta
	}

	meta := &handlers.RequestMeta{StartedAt: time.Now()}

	return huma.WithContext(ctx, handlers.ContextWithRequestMeta(ctx.Context(), meta)), meta
}

// forwardedIP returns the first address of X-Forwarded-For, or "".
func forwardedIP(ctx huma.Context) string {
	xff := ctx.Header("X-Forwarded-For")
	if xff == "" {
		return ""
	}

	if idx := strings.Index(xff, ","); idx != -1 {
		return strings.TrimSpace(xff[:idx])
	}

	return strings.TrimSpace(xff)
}

// remoteIP returns the host part of the connection address.
func remoteIP(ctx huma.Context) string {
	addr := ctx.RemoteAddr()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

func extractClientIP(ctx huma.Context) string {
	if ip := forwardedIP(ctx); ip != "" {
		return ip
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	return remoteIP(ctx)
}
