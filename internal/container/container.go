// Package container wires the gateway's services with samber/do.
package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/sports-gateway/internal/cache"
	"github.com/serroba/sports-gateway/internal/handlers"
	"github.com/serroba/sports-gateway/internal/health"
	"github.com/serroba/sports-gateway/internal/logging"
	"github.com/serroba/sports-gateway/internal/messaging"
	"github.com/serroba/sports-gateway/internal/metrics"
	"github.com/serroba/sports-gateway/internal/middleware"
	"github.com/serroba/sports-gateway/internal/ratelimit"
	"github.com/serroba/sports-gateway/internal/store"
	"github.com/serroba/sports-gateway/internal/subscription"
	"github.com/serroba/sports-gateway/internal/telemetry"
	telemetrystore "github.com/serroba/sports-gateway/internal/telemetry/store"
	"github.com/serroba/sports-gateway/internal/upstream"
	"github.com/serroba/sports-gateway/internal/worker"
	"go.uber.org/zap"
)

const (
	requestIDLength        = 21
	telemetryConsumerGroup = "gateway-telemetry"
)

var errUnknownBackend = errors.New("unknown backend")

// RedisClient is the shared Redis connection. It is closed on shutdown.
type RedisClient struct {
	redis.UniversalClient
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// Postgres is the shared connection pool. It is closed on shutdown.
type Postgres struct {
	*pgxpool.Pool
}

func (p *Postgres) Shutdown() error {
	p.Close()

	return nil
}

// LoggerPackage provides the process logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return logging.New(opts.LogFormat, opts.LogLevel, opts.LogFile)
	})
}

// RedisPackage provides the Redis client.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{UniversalClient: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPackage provides the Postgres pool, applying the schema when asked to.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			return nil, errors.New("database url is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		if opts.Migrate {
			if err := store.Migrate(ctx, pool); err != nil {
				pool.Close()

				return nil, err
			}

			logger.Info("schema applied")
		}

		return &Postgres{Pool: pool}, nil
	})
}

// RepositoryPackage provides the credential repository and the cache store.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (subscription.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.CredentialBackend {
		case BackendPostgres:
			return store.NewCredentialPostgresStore(do.MustInvoke[*Postgres](i).Pool), nil
		case BackendMemory:
			memory := store.NewCredentialMemoryStore()

			if opts.SeedFile != "" {
				if err := store.LoadSeedFile(opts.SeedFile, memory); err != nil {
					return nil, err
				}
			}

			return memory, nil
		default:
			return nil, fmt.Errorf("credential backend %q: %w", opts.CredentialBackend, errUnknownBackend)
		}
	})

	do.Provide(i, func(i *do.Injector) (cache.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.CacheBackend {
		case BackendPostgres:
			return store.NewCachePostgresStore(do.MustInvoke[*Postgres](i).Pool), nil
		case BackendRedis:
			return store.NewCacheRedisStore(do.MustInvoke[*RedisClient](i).UniversalClient), nil
		case BackendMemory:
			return store.NewCacheMemoryStore(), nil
		default:
			return nil, fmt.Errorf("cache backend %q: %w", opts.CacheBackend, errUnknownBackend)
		}
	})
}

// SubscriptionPackage provides the authenticator and the ledger.
func SubscriptionPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*subscription.Authenticator, error) {
		return subscription.NewAuthenticator(
			do.MustInvoke[subscription.Repository](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*subscription.Ledger, error) {
		return subscription.NewLedger(
			do.MustInvoke[subscription.Repository](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// RateLimitPackage provides the limiter. The in-memory window store gets a sweeper.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.RateLimitBackend {
		case BackendMemory:
			return store.NewRateLimitMemoryStore(), nil
		case BackendRedis:
			return store.NewRateLimitRedisStore(do.MustInvoke[*RedisClient](i).UniversalClient), nil
		default:
			return nil, fmt.Errorf("rate limit backend %q: %w", opts.RateLimitBackend, errUnknownBackend)
		}
	})

	do.Provide(i, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)

		return ratelimit.NewFixedWindowLimiter(
			do.MustInvoke[ratelimit.Store](i),
			int64(opts.RateLimitMax),
			opts.RateLimitWindow,
		), nil
	})
}

// CachePackage provides the response cache and its TTL policy.
func CachePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*cache.Policy, error) {
		policy := cache.NewPolicy(do.MustInvoke[*Options](i).FixturesTTL)
		handlers.ConfigurePolicy(policy)

		return policy, nil
	})

	do.Provide(i, func(i *do.Injector) (*cache.ResponseCache, error) {
		opts := do.MustInvoke[*Options](i)

		return cache.New(
			do.MustInvoke[cache.Store](i),
			do.MustInvoke[*cache.Policy](i),
			do.MustInvoke[*zap.Logger](i),
			cache.WithSingleFlight(opts.SingleFlight),
		), nil
	})
}

// UpstreamPackage provides the provider client.
func UpstreamPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*upstream.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return upstream.NewClient(upstream.Config{
			BaseURL: opts.UpstreamURL,
			APIKey:  opts.UpstreamKey,
			Timeout: opts.UpstreamTimeout,
		}, do.MustInvoke[*zap.Logger](i)), nil
	})
}

// MetricsPackage provides the Prometheus collector.
func MetricsPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*metrics.Collector, error) {
		return metrics.NewCollector(), nil
	})
}

// PublisherGroupPackage provides the request event publisher for the configured transport.
// The in-memory transport shares one go channel between publisher and subscriber.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return gochannel.NewGoChannel(gochannel.Config{}, messaging.NewZapLogger(logger)), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var (
			publisher message.Publisher
			err       error
		)

		switch opts.TelemetryTransport {
		case BackendMemory:
			publisher = do.MustInvoke[*gochannel.GoChannel](i)
		case BackendRedis:
			publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{
				Client: do.MustInvoke[*RedisClient](i).UniversalClient,
			}, messaging.NewZapLogger(logger))
		default:
			err = fmt.Errorf("telemetry transport %q: %w", opts.TelemetryTransport, errUnknownBackend)
		}

		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the consumer that persists request events.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (telemetry.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			return telemetrystore.NewNoop(logger), nil
		}

		return telemetrystore.NewPostgres(stdlib.OpenDBFromPool(do.MustInvoke[*Postgres](i).Pool)), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var (
			subscriber message.Subscriber
			err        error
		)

		switch opts.TelemetryTransport {
		case BackendMemory:
			subscriber = do.MustInvoke[*gochannel.GoChannel](i)
		case BackendRedis:
			subscriber, err = redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        do.MustInvoke[*RedisClient](i).UniversalClient,
				ConsumerGroup: telemetryConsumerGroup,
			}, messaging.NewZapLogger(logger))
		default:
			err = fmt.Errorf("telemetry transport %q: %w", opts.TelemetryTransport, errUnknownBackend)
		}

		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(
			subscriber,
			telemetry.TopicRequestRecorded,
			telemetry.NewHandler(do.MustInvoke[telemetry.Store](i), logger),
			logger,
		))

		return group, nil
	})
}

// TelemetryPackage provides the request event recorder.
func TelemetryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*telemetry.Recorder, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		collector := do.MustInvoke[*metrics.Collector](i)
		publishers := do.MustInvoke[*messaging.PublisherGroup](i)

		return telemetry.NewRecorder(
			messaging.NewPublishFunc[telemetry.RequestEvent](publishers.Publisher(), telemetry.TopicRequestRecorded),
			opts.TelemetryQueueSize,
			logger,
			telemetry.WithDropHook(collector.TelemetryDropped),
		), nil
	})
}

// BackgroundPackage provides the server's background workers: the in-process
// telemetry consumer, the recorder and the sweepers.
func BackgroundPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*worker.Group, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		group := worker.NewGroup(logger)

		// The consumer must be subscribed before the recorder publishes.
		if opts.TelemetryTransport == BackendMemory {
			group.Add("telemetry-consumer", do.MustInvoke[*messaging.ConsumerGroup](i))
		}

		group.Add("telemetry-recorder", do.MustInvoke[*telemetry.Recorder](i))

		if windows, ok := do.MustInvoke[ratelimit.Store](i).(*store.RateLimitMemoryStore); ok {
			group.Add("ratelimit-sweep", worker.NewPeriodic("ratelimit-sweep", opts.RateLimitSweepInterval,
				func(context.Context) error {
					if n := windows.Sweep(time.Now()); n > 0 {
						logger.Debug("expired rate limit windows removed", zap.Int("count", n))
					}

					return nil
				}, logger))
		}

		responseCache := do.MustInvoke[*cache.ResponseCache](i)
		group.Add("cache-sweep", worker.NewPeriodic("cache-sweep", opts.CacheSweepInterval,
			func(ctx context.Context) error {
				_, err := responseCache.Sweep(ctx)

				return err
			}, logger))

		return group, nil
	})
}

// HealthPackage provides the health handler with a check per configured dependency.
func HealthPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*health.Handler, error) {
		opts := do.MustInvoke[*Options](i)
		h := health.NewHandler()

		if opts.usesRedis() {
			h.Add("redis", health.NewRedisChecker(do.MustInvoke[*RedisClient](i).UniversalClient))
		}

		if opts.usesPostgres() {
			h.Add("postgres", health.NewPostgresChecker(do.MustInvoke[*Postgres](i).Pool))
		}

		return h, nil
	})
}

// HTTPPackage provides the router and the API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(chimiddleware.Recoverer)
		router.Handle("/metrics", do.MustInvoke[*metrics.Collector](i).Handler())

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		collector := do.MustInvoke[*metrics.Collector](i)
		responseCache := do.MustInvoke[*cache.ResponseCache](i)

		newID, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, err
		}

		handlers.UseEnvelopeErrors()

		api := humachi.New(do.MustInvoke[*chi.Mux](i), huma.DefaultConfig("Sports Gateway", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(newID, time.Now),
			middleware.RateLimiter(
				api,
				do.MustInvoke[ratelimit.Limiter](i),
				middleware.NewIdentityFunc(opts.IdentityFallback),
				collector,
				logger,
			),
			middleware.Telemetry(do.MustInvoke[*telemetry.Recorder](i), collector, time.Now),
		)

		chain := handlers.Chain{
			Authenticate: middleware.Authenticate(api, do.MustInvoke[*subscription.Authenticator](i), collector, logger),
			Charge:       middleware.Ledger(do.MustInvoke[*subscription.Ledger](i)),
		}

		sports := handlers.NewSportsHandler(responseCache, do.MustInvoke[*upstream.Client](i), logger)
		handlers.RegisterRoutes(api, sports, chain)

		if opts.AdminToken != "" {
			handlers.RegisterAdminRoutes(api, handlers.NewAdminHandler(responseCache, opts.AdminToken, logger))
		}

		health.RegisterRoutes(api, do.MustInvoke[*health.Handler](i))

		return api, nil
	})
}

// Register provides every package the HTTP server needs.
func Register(i *do.Injector, options *Options) {
	do.ProvideValue(i, options)
	LoggerPackage(i)
	RedisPackage(i)
	PostgresPackage(i)
	RepositoryPackage(i)
	SubscriptionPackage(i)
	RateLimitPackage(i)
	CachePackage(i)
	UpstreamPackage(i)
	MetricsPackage(i)
	PublisherGroupPackage(i)
	ConsumerGroupPackage(i)
	TelemetryPackage(i)
	BackgroundPackage(i)
	HealthPackage(i)
	HTTPPackage(i)
}
