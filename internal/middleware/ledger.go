package middleware

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/sports-gateway/internal/subscription"
)

// Charger records consumption for a finished request.
type Charger interface {
	Record(ctx context.Context, auth *subscription.AuthContext, status int) (bool, error)
}

// Ledger returns a Huma middleware that charges the subscription once the
// response has been written. Only 2xx responses are charged.
func Ledger(charger Charger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		ctx, meta := requestMeta(ctx)

		next(ctx)

		if meta.Auth == nil {
			return
		}

		// Failures are logged by the charger; the response is already sent.
		_, _ = charger.Record(context.WithoutCancel(ctx.Context()), meta.Auth, ctx.Status())
	}
}
