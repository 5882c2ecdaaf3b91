package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Chain holds the per-operation middlewares of authenticated routes.
type Chain struct {
	// Authenticate resolves the API key into an AuthContext.
	Authenticate func(ctx huma.Context, next func(huma.Context))
	// Charge increments usage after a successful response.
	Charge func(ctx huma.Context, next func(huma.Context))
}

func (c Chain) metered() huma.Middlewares {
	return huma.Middlewares{c.Authenticate, c.Charge}
}

func (c Chain) unmetered() huma.Middlewares {
	return huma.Middlewares{c.Authenticate}
}

// RegisterRoutes registers the sports data routes and the usage route.
func RegisterRoutes(api huma.API, sports *SportsHandler, chain Chain) {
	tags := []string{"Sports"}

	huma.Register(api, huma.Operation{
		OperationID: "list-leagues",
		Method:      http.MethodGet,
		Path:        "/{sport}/leagues",
		Summary:     "List leagues",
		Tags:        tags,
		Middlewares: chain.metered(),
	}, sports.ListLeagues)

	huma.Register(api, huma.Operation{
		OperationID: "get-league",
		Method:      http.MethodGet,
		Path:        "/{sport}/leagues/{id}",
		Summary:     "Get a league",
		Tags:        tags,
		Middlewares: chain.metered(),
	}, sports.GetLeague)

	huma.Register(api, huma.Operation{
		OperationID: "get-standings",
		Method:      http.MethodGet,
		Path:        "/{sport}/leagues/{id}/standings",
		Summary:     "Get league standings",
		Tags:        tags,
		Middlewares: chain.metered(),
	}, sports.GetStandings)

	huma.Register(api, huma.Operation{
		OperationID: "list-teams",
		Method:      http.MethodGet,
		Path:        "/{sport}/teams",
		Summary:     "List teams",
		Tags:        tags,
		Middlewares: chain.metered(),
	}, sports.ListTeams)

	huma.Register(api, huma.Operation{
		OperationID: "get-team",
		Method:      http.MethodGet,
		Path:        "/{sport}/teams/{id}",
		Summary:     "Get a team",
		Tags:        tags,
		Middlewares: chain.metered(),
	}, sports.GetTeam)

	huma.Register(api, huma.Operation{
		OperationID: "list-fixtures",
		Method:      http.MethodGet,
		Path:        "/{sport}/fixtures",
		Summary:     "List fixtures",
		Tags:        tags,
		Middlewares: chain.metered(),
	}, sports.ListFixtures)

	huma.Register(api, huma.Operation{
		OperationID: "get-match",
		Method:      http.MethodGet,
		Path:        "/{sport}/matches/{id}",
		Summary:     "Get a match",
		Tags:        tags,
		Middlewares: chain.metered(),
	}, sports.GetMatch)

	// Checking usage does not consume quota.
	huma.Register(api, huma.Operation{
		OperationID: "get-usage",
		Method:      http.MethodGet,
		Path:        "/usage",
		Summary:     "Get quota usage for the calling key",
		Tags:        []string{"Account"},
		Middlewares: chain.unmetered(),
	}, Usage)
}

// RegisterAdminRoutes registers the cache maintenance routes.
func RegisterAdminRoutes(api huma.API, admin *AdminHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "flush-cache",
		Method:      http.MethodDelete,
		Path:        "/admin/cache/{sport}",
		Summary:     "Flush cached responses of a sport",
		Tags:        []string{"Admin"},
	}, admin.FlushCache)

	huma.Register(api, huma.Operation{
		OperationID: "sweep-cache",
		Method:      http.MethodPost,
		Path:        "/admin/cache/sweep",
		Summary:     "Delete expired cache entries",
		Tags:        []string{"Admin"},
	}, admin.SweepCache)
}
