package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/sports-gateway/internal/handlers"
	"github.com/serroba/sports-gateway/internal/subscription"
	"go.uber.org/zap"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-Key"

// Authenticator resolves an API key into an AuthContext.
type Authenticator interface {
	Authenticate(ctx context.Context, key string, sport subscription.Sport) (*subscription.AuthContext, error)
}

// Authenticate returns a Huma middleware that validates the API key and the
// subscription behind it. The sport path parameter, when valid, is checked
// against the subscription's entitlement.
func Authenticate(
	api huma.API,
	auth Authenticator,
	metrics Metrics,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		ctx, meta := requestMeta(ctx)

		sport := subscription.Sport(ctx.Param("sport"))
		if !sport.Valid() {
			// Left to parameter validation, which answers 400.
			sport = ""
		}

		authCtx, err := auth.Authenticate(ctx.Context(), ctx.Header(APIKeyHeader), sport)
		if err != nil {
			apiErr := handlers.FromError(err)
			if apiErr.GetStatus() == http.StatusInternalServerError {
				logger.Error("authentication failed",
					zap.String("request_id", meta.RequestID),
					zap.Error(err),
				)
			} else {
				metrics.AuthRejected(rejectionReason(err))
				logger.Debug("request rejected",
					zap.String("request_id", meta.RequestID),
					zap.String("reason", rejectionReason(err)),
				)
			}

			var quotaErr *subscription.QuotaExhaustedError
			if errors.As(err, &quotaErr) {
				ctx.SetHeader("X-Quota-Reset", strconv.FormatInt(quotaErr.ResetAt.Unix(), 10))
			}

			_ = handlers.WriteError(api, ctx, apiErr)

			return
		}

		meta.Auth = authCtx
		ctx.SetHeader("X-Quota-Remaining", strconv.FormatInt(authCtx.RemainingQuota, 10))

		next(ctx)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, subscription.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, subscription.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, subscription.ErrSubscriptionInactive):
		return "subscription_inactive"
	case errors.Is(err, subscription.ErrSportNotEntitled):
		return "sport_not_entitled"
	case errors.Is(err, subscription.ErrQuotaExhausted):
		return "quota_exhausted"
	default:
		return "error"
	}
}
