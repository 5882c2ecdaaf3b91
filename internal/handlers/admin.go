package handlers

import (
	"context"
	"crypto/subtle"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/sports-gateway/internal/cache"
	"go.uber.org/zap"
)

// AdminHandler exposes cache maintenance operations.
type AdminHandler struct {
	cache  *cache.ResponseCache
	token  string
	logger *zap.Logger
}

// NewAdminHandler creates a new admin handler guarded by token.
func NewAdminHandler(responseCache *cache.ResponseCache, token string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		cache:  responseCache,
		token:  token,
		logger: logger,
	}
}

func (h *AdminHandler) authorize(token string) error {
	if h.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
		return huma.Error401Unauthorized("Invalid admin token")
	}

	return nil
}

func (h *AdminHandler) FlushCache(ctx context.Context, req *FlushCacheRequest) (*DeletedResponse, error) {
	if err := h.authorize(req.Token); err != nil {
		return nil, err
	}

	n, err := h.cache.FlushSport(ctx, req.Sport)
	if err != nil {
		h.logger.Error("cache flush failed", zap.String("sport", req.Sport), zap.Error(err))

		return nil, FromError(err)
	}

	resp := &DeletedResponse{}
	resp.Body.Success = true
	resp.Body.Data.Deleted = n

	return resp, nil
}

func (h *AdminHandler) SweepCache(ctx context.Context, req *SweepCacheRequest) (*DeletedResponse, error) {
	if err := h.authorize(req.Token); err != nil {
		return nil, err
	}

	n, err := h.cache.Sweep(ctx)
	if err != nil {
		h.logger.Error("cache sweep failed", zap.Error(err))

		return nil, FromError(err)
	}

	resp := &DeletedResponse{}
	resp.Body.Success = true
	resp.Body.Data.Deleted = n

	return resp, nil
}

// Usage reports the quota state of the calling key.
func Usage(ctx context.Context, _ *struct{}) (*UsageResponse, error) {
	meta := RequestMetaFromContext(ctx)
	if meta.Auth == nil {
		return nil, huma.Error401Unauthorized("API key is required")
	}

	resp := &UsageResponse{}
	resp.Body.Success = true
	resp.Body.Data.Sport = string(meta.Auth.Sport)
	resp.Body.Data.RemainingQuota = meta.Auth.RemainingQuota
	resp.Body.Data.ResetAt = meta.Auth.ResetAt

	return resp, nil
}
