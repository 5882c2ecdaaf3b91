package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/serroba/sports-gateway/internal/cache"
	"github.com/serroba/sports-gateway/internal/upstream"
	"go.uber.org/zap"
)

// Endpoint names used for cache keys, TTL tiers and telemetry.
const (
	EndpointLeagues   = "leagues"
	EndpointLeague    = "league"
	EndpointStandings = "standings"
	EndpointTeams     = "teams"
	EndpointTeam      = "team"
	EndpointFixtures  = "fixtures"
	EndpointMatch     = "match"
)

// Fetcher retrieves payloads from the upstream provider.
type Fetcher interface {
	Fetch(ctx context.Context, sport, path string, query url.Values) ([]byte, error)
}

// SportsHandler serves sports data through the response cache.
type SportsHandler struct {
	cache    *cache.ResponseCache
	upstream Fetcher
	logger   *zap.Logger
}

// NewSportsHandler creates a new sports data handler.
func NewSportsHandler(responseCache *cache.ResponseCache, fetcher Fetcher, logger *zap.Logger) *SportsHandler {
	return &SportsHandler{
		cache:    responseCache,
		upstream: fetcher,
		logger:   logger,
	}
}

// ConfigurePolicy assigns the TTL tier of every sports endpoint.
func ConfigurePolicy(policy *cache.Policy) {
	for _, endpoint := range []string{EndpointLeagues, EndpointLeague, EndpointStandings, EndpointTeams, EndpointTeam} {
		policy.Set(endpoint, cache.Fixed(cache.TierDaily))
	}

	policy.Set(EndpointFixtures, cache.Fixed(cache.TierFrequent))
	policy.Set(EndpointMatch, MatchTier)
}

func (h *SportsHandler) ListLeagues(ctx context.Context, req *LeaguesRequest) (*DataResponse, error) {
	return h.serve(ctx, req.Sport, EndpointLeagues, "/leagues", cache.Params{
		"country": req.Country,
		"season":  req.Season,
		"search":  req.Name,
	}, false)
}

func (h *SportsHandler) GetLeague(ctx context.Context, req *DetailRequest) (*DataResponse, error) {
	return h.serve(ctx, req.Sport, EndpointLeague, "/leagues", cache.Params{"id": req.ID}, true)
}

func (h *SportsHandler) GetStandings(ctx context.Context, req *StandingsRequest) (*DataResponse, error) {
	return h.serve(ctx, req.Sport, EndpointStandings, "/standings", cache.Params{
		"league": req.ID,
		"season": req.Season,
	}, true)
}

func (h *SportsHandler) ListTeams(ctx context.Context, req *TeamsRequest) (*DataResponse, error) {
	return h.serve(ctx, req.Sport, EndpointTeams, "/teams", cache.Params{
		"league":  req.League,
		"season":  req.Season,
		"country": req.Country,
		"search":  req.Name,
	}, false)
}

func (h *SportsHandler) GetTeam(ctx context.Context, req *DetailRequest) (*DataResponse, error) {
	return h.serve(ctx, req.Sport, EndpointTeam, "/teams", cache.Params{"id": req.ID}, true)
}

func (h *SportsHandler) ListFixtures(ctx context.Context, req *FixturesRequest) (*DataResponse, error) {
	return h.serve(ctx, req.Sport, EndpointFixtures, "/fixtures", cache.Params{
		"league": req.League,
		"season": req.Season,
		"date":   req.Date,
		"team":   req.Team,
		"status": req.Status,
	}, false)
}

func (h *SportsHandler) GetMatch(ctx context.Context, req *DetailRequest) (*DataResponse, error) {
	return h.serve(ctx, req.Sport, EndpointMatch, "/fixtures", cache.Params{"id": req.ID}, true)
}

// serve runs the cache-aside fetch and wraps the payload in the envelope.
// Detail endpoints treat an empty payload as not found.
func (h *SportsHandler) serve(
	ctx context.Context,
	sport, endpoint, path string,
	params cache.Params,
	detail bool,
) (*DataResponse, error) {
	key := cache.Key{Sport: sport, Endpoint: endpoint, Params: params}

	res, err := h.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		payload, err := h.upstream.Fetch(ctx, sport, path, params.Query())
		if err != nil {
			return nil, err
		}

		if detail && upstream.IsEmpty(payload) {
			return nil, upstream.ErrNotFound
		}

		return payload, nil
	})
	if err != nil {
		if errors.Is(err, upstream.ErrUnavailable) {
			h.logger.Warn("upstream fetch failed",
				zap.String("sport", sport),
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
		}

		return nil, FromError(err)
	}

	data, err := decodePayload(res.Payload)
	if err != nil {
		h.logger.Error("undecodable payload",
			zap.String("sport", sport),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)

		return nil, FromError(err)
	}

	meta := RequestMetaFromContext(ctx)
	meta.CacheHit = res.Hit

	var remaining int64
	if meta.Auth != nil {
		remaining = meta.Auth.RemainingQuota
	}

	resp := &DataResponse{
		CacheStatus: "MISS",
		Body: Envelope{
			Success: true,
			Data:    data,
			Meta:    Meta{Cached: res.Hit, RemainingQuota: remaining},
		},
	}
	if res.Hit {
		resp.CacheStatus = "HIT"
	}

	return resp, nil
}

func decodePayload(payload []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}

	return data, nil
}

var finishedStatuses = map[string]bool{
	"FT":       true,
	"AET":      true,
	"PEN":      true,
	"AWD":      true,
	"WO":       true,
	"FINISHED": true,
}

// MatchTier caches finished matches permanently and everything else like fixtures.
func MatchTier(payload []byte) cache.Tier {
	data, err := decodePayload(payload)
	if err != nil {
		return cache.TierFrequent
	}

	if list, ok := data.([]any); ok {
		if len(list) != 1 {
			return cache.TierFrequent
		}

		data = list[0]
	}

	if finishedStatuses[strings.ToUpper(matchStatus(data))] {
		return cache.TierPermanent
	}

	return cache.TierFrequent
}

// matchStatus finds the short status code at fixture.status.short, status.short or status.
func matchStatus(data any) string {
	obj, ok := data.(map[string]any)
	if !ok {
		return ""
	}

	if fixture, ok := obj["fixture"].(map[string]any); ok {
		obj = fixture
	}

	switch status := obj["status"].(type) {
	case string:
		return status
	case map[string]any:
		short, _ := status["short"].(string)

		return short
	default:
		return ""
	}
}
