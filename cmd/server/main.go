package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/sports-gateway/internal/cache"
	"github.com/serroba/sports-gateway/internal/container"
	"github.com/serroba/sports-gateway/internal/subscription"
	"github.com/serroba/sports-gateway/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	// A missing .env file is fine; the environment and flags still apply.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		container.Register(injector, options)

		var (
			server *http.Server
			logger *zap.Logger
		)

		hooks.OnStart(func() {
			logger = do.MustInvoke[*zap.Logger](injector)
			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger route registration
			_ = do.MustInvoke[huma.API](injector)

			if err := do.MustInvoke[*worker.Group](injector).Start(context.Background()); err != nil {
				logger.Fatal("background workers failed", zap.Error(err))
			}

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting", zap.Int("port", options.Port))

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			if logger == nil {
				return
			}

			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
		})
	})

	cli.Root().AddCommand(sweepCacheCommand(), flushCacheCommand())

	cli.Run()
}

// withCache runs fn against the configured response cache.
func withCache(options *container.Options, fn func(ctx context.Context, c *cache.ResponseCache) (int64, error)) {
	injector := do.New()
	container.Register(injector, options)

	defer func() { _ = injector.Shutdown() }()

	logger := do.MustInvoke[*zap.Logger](injector)

	n, err := fn(context.Background(), do.MustInvoke[*cache.ResponseCache](injector))
	if err != nil {
		logger.Fatal("cache maintenance failed", zap.Error(err))
	}

	fmt.Printf("deleted %d cache entries\n", n)
}

func sweepCacheCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-cache",
		Short: "Delete expired cache entries and exit",
		Run: humacli.WithOptions(func(_ *cobra.Command, _ []string, options *container.Options) {
			withCache(options, func(ctx context.Context, c *cache.ResponseCache) (int64, error) {
				return c.Sweep(ctx)
			})
		}),
	}
}

func flushCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush-cache",
		Short: "Delete every cache entry of a sport and exit",
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
			sport, _ := cmd.Flags().GetString("sport")

			if !subscription.Sport(sport).Valid() {
				fmt.Printf("unknown sport %q\n", sport)

				return
			}

			withCache(options, func(ctx context.Context, c *cache.ResponseCache) (int64, error) {
				return c.FlushSport(ctx, sport)
			})
		}),
	}

	cmd.Flags().String("sport", "", "Sport to flush")
	_ = cmd.MarkFlagRequired("sport")

	return cmd
}
