package handlers

import (
	"context"
	"time"

	"github.com/serroba/sports-gateway/internal/subscription"
)

type requestMetaKey struct{}

// RequestMeta is request-scoped state shared by the middlewares and the handlers.
// It is created once per request and filled in as the request moves down the chain.
type RequestMeta struct {
	RequestID string
	ClientIP  string
	UserAgent string
	StartedAt time.Time
	Auth      *subscription.AuthContext
	CacheHit  bool
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// LookupRequestMeta returns the request metadata attached to ctx, if any.
func LookupRequestMeta(ctx context.Context) (*RequestMeta, bool) {
	v, ok := ctx.Value(requestMetaKey{}).(*RequestMeta)

	return v, ok && v != nil
}

// RequestMetaFromContext extracts request metadata from context.
// A detached empty value is returned when none was attached.
func RequestMetaFromContext(ctx context.Context) *RequestMeta {
	if v, ok := LookupRequestMeta(ctx); ok {
		return v
	}

	return &RequestMeta{}
}
