package handlers

import "time"

// Meta is attached to every successful data response.
type Meta struct {
	Cached         bool  `doc:"Whether the payload was served from cache" json:"cached"`
	RemainingQuota int64 `doc:"Requests left in the current cycle"        json:"remainingQuota"`
}

// Envelope wraps every successful data response.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Meta    Meta `json:"meta"`
}

// DataResponse is the response of every sports data endpoint.
type DataResponse struct {
	CacheStatus string `doc:"HIT when served from cache, MISS otherwise" header:"X-Cache"`
	Body        Envelope
}

// LeaguesRequest lists leagues.
type LeaguesRequest struct {
	Sport   string `doc:"Sport"                enum:"football,basketball,baseball,hockey,volleyball,handball,rugby" path:"sport"`
	Country string `doc:"Country name"         example:"brazil"                                                     query:"country"`
	Season  string `doc:"Season year"          example:"2024"                                                       query:"season"`
	Name    string `doc:"League name contains" query:"name"`
}

// DetailRequest addresses a single resource by id.
type DetailRequest struct {
	Sport string `doc:"Sport"       enum:"football,basketball,baseball,hockey,volleyball,handball,rugby" path:"sport"`
	ID    string `doc:"Resource id" maxLength:"64"                                                       minLength:"1" path:"id"`
}

// StandingsRequest asks for a league table.
type StandingsRequest struct {
	Sport  string `doc:"Sport"       enum:"football,basketball,baseball,hockey,volleyball,handball,rugby" path:"sport"`
	ID     string `doc:"League id"   maxLength:"64"                                                       minLength:"1" path:"id"`
	Season string `doc:"Season year" example:"2024"                                                       query:"season"`
}

// TeamsRequest lists teams.
type TeamsRequest struct {
	Sport   string `doc:"Sport"              enum:"football,basketball,baseball,hockey,volleyball,handball,rugby" path:"sport"`
	League  string `doc:"League id"          query:"league"`
	Season  string `doc:"Season year"        query:"season"`
	Country string `doc:"Country name"       query:"country"`
	Name    string `doc:"Team name contains" query:"name"`
}

// FixturesRequest lists fixtures.
type FixturesRequest struct {
	Sport  string `doc:"Sport"              enum:"football,basketball,baseball,hockey,volleyball,handball,rugby" path:"sport"`
	League string `doc:"League id"          query:"league"`
	Season string `doc:"Season year"        query:"season"`
	Date   string `doc:"Date as YYYY-MM-DD" example:"2024-05-01"                                                 query:"date"`
	Team   string `doc:"Team id"            query:"team"`
	Status string `doc:"Fixture status"     query:"status"`
}

// UsageResponse reports the caller's quota state.
type UsageResponse struct {
	Body struct {
		Success bool `json:"success"`
		Data    struct {
			Sport          string    `json:"sport"`
			RemainingQuota int64     `json:"remainingQuota"`
			ResetAt        time.Time `json:"resetAt"`
		} `json:"data"`
	}
}

// FlushCacheRequest flushes the cache of one sport.
type FlushCacheRequest struct {
	Token string `doc:"Administrative token" header:"X-Admin-Token"`
	Sport string `doc:"Sport"                enum:"football,basketball,baseball,hockey,volleyball,handball,rugby" path:"sport"`
}

// SweepCacheRequest triggers an expired entry sweep.
type SweepCacheRequest struct {
	Token string `doc:"Administrative token" header:"X-Admin-Token"`
}

// DeletedResponse reports how many cache entries were removed.
type DeletedResponse struct {
	Body struct {
		Success bool `json:"success"`
		Data    struct {
			Deleted int64 `json:"deleted"`
		} `json:"data"`
	}
}
