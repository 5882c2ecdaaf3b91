package container

import "time"

// Backend names accepted by the Options below.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options is the gateway configuration. Every field is also a CLI flag and a
// SERVICE_ prefixed environment variable.
type Options struct {
	Port      int    `default:"8888"    help:"Port to listen on"                           short:"p"`
	LogFormat string `default:"console" help:"Log format: console or json"`
	LogLevel  string `default:"info"    help:"Minimum log level"`
	LogFile   string `default:""        help:"Also write JSON logs to this rotated file"`

	RedisAddr   string `default:"localhost:6379" help:"Redis server address"     short:"r"`
	DatabaseURL string `default:""               help:"Postgres connection URL"`
	Migrate     bool   `default:"false"          help:"Apply the schema on startup"`

	CredentialBackend string `default:"postgres" help:"Credential store: postgres or memory"`
	SeedFile          string `default:""         help:"YAML credentials for the memory credential store"`
	CacheBackend      string `default:"postgres" help:"Response cache store: postgres, redis or memory"`
	RateLimitBackend  string `default:"memory"   help:"Rate limit window store: memory or redis"`

	RateLimitMax           int           `default:"100" help:"Requests allowed per client per window"`
	RateLimitWindow        time.Duration `default:"1m"  help:"Rate limit window length"`
	RateLimitSweepInterval time.Duration `default:"10m" help:"How often expired in-memory windows are removed"`
	IdentityFallback       string        `default:"unknown" help:"Client identity without X-Forwarded-For: unknown or remote-addr"`

	UpstreamURL     string        `default:"https://v3.{sport}.api-sports.io" help:"Provider base URL, {sport} is replaced per request"`
	UpstreamKey     string        `default:""                                 help:"Provider API key"`
	UpstreamTimeout time.Duration `default:"10s"                              help:"Timeout of one provider request"`

	FixturesTTL        time.Duration `default:"1h"   help:"TTL of fixtures and unfinished matches"`
	CacheSweepInterval time.Duration `default:"1h"   help:"How often expired cache entries are deleted"`
	SingleFlight       bool          `default:"true" help:"Collapse concurrent misses of the same key into one provider call"`

	TelemetryTransport string `default:"memory" help:"Request event transport: memory or redis"`
	TelemetryQueueSize int    `default:"1024"   help:"Request events buffered before new ones are dropped"`

	AdminToken string `default:"" help:"Token for the admin cache routes, empty disables them"`
}

// usesRedis reports whether any component is configured on Redis.
func (o *Options) usesRedis() bool {
	return o.CacheBackend == BackendRedis ||
		o.RateLimitBackend == BackendRedis ||
		o.TelemetryTransport == BackendRedis
}

// usesPostgres reports whether any component is configured on Postgres.
func (o *Options) usesPostgres() bool {
	return o.DatabaseURL != "" ||
		o.CredentialBackend == BackendPostgres ||
		o.CacheBackend == BackendPostgres
}
