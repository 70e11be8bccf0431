package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/waypost/internal/cache/memory"
	"github.com/davidbz/waypost/internal/config"
	"github.com/davidbz/waypost/internal/domain"
	httpserver "github.com/davidbz/waypost/internal/http"
	"github.com/davidbz/waypost/internal/http/middleware"
	"github.com/davidbz/waypost/internal/observability"
	"github.com/davidbz/waypost/internal/provider/amap"
	"github.com/davidbz/waypost/internal/provider/baidu"
	"github.com/davidbz/waypost/internal/provider/google"
)

const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 20

	shutdownTimeout = 10 * time.Second
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *httpserver.Server) {
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil {
				log.Fatalf("Server failed to start: %v", err)
			}
		case <-stop:
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				log.Fatalf("Server shutdown failed: %v", err)
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability (invoked for side effects: sets the global logger)
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Invoke(func(_ *zap.Logger) {}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := container.Provide(observability.NewMetrics); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}

	// Clock
	if err := container.Provide(func() clockwork.Clock {
		return clockwork.NewRealClock()
	}); err != nil {
		log.Fatalf("Failed to provide clock: %v", err)
	}

	// Shared HTTP client: one pooled transport for every provider call.
	if err := container.Provide(func(cfg *config.GeocodingConfig) *http.Client {
		return &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        maxIdleConns,
				MaxIdleConnsPerHost: maxIdleConnsPerHost,
			},
		}
	}); err != nil {
		log.Fatalf("Failed to provide HTTP client: %v", err)
	}

	// Geocoding Provider: bound once at startup, immutable for the
	// service's lifetime.
	if err := container.Provide(buildProvider); err != nil {
		log.Fatalf("Failed to provide geocoding provider: %v", err)
	}

	// Response cache
	if err := container.Provide(func(cfg *config.CacheConfig, clock clockwork.Clock) domain.Cache {
		if !cfg.Enabled {
			return nil
		}
		return memory.New(cfg.MaxSize, time.Duration(cfg.TTL)*time.Second, clock)
	}); err != nil {
		log.Fatalf("Failed to provide cache: %v", err)
	}

	// Domain Services
	if err := container.Provide(func(
		provider domain.Provider,
		cache domain.Cache,
		metrics *observability.Metrics,
		clock clockwork.Clock,
		cfg *config.GeocodingConfig,
	) *domain.GeocodingService {
		return domain.NewGeocodingService(provider, cache, metrics, clock, domain.ServiceConfig{
			RetryTimes:     cfg.RetryTimes,
			HealthCheckURL: cfg.HealthCheckURL,
		})
	}); err != nil {
		log.Fatalf("Failed to provide geocoding service: %v", err)
	}

	// Redis client for rate limiting (nil when disabled).
	if err := container.Provide(func(cfg *config.RateLimitConfig) *redis.Client {
		if !cfg.Enabled {
			return nil
		}
		return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}); err != nil {
		log.Fatalf("Failed to provide redis client: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(func(
		corsCfg *config.CORSConfig,
		rateLimitCfg *config.RateLimitConfig,
		redisClient *redis.Client,
	) middleware.Middleware {
		return middleware.BuildMiddlewareChain(corsCfg, rateLimitCfg, redisClient)
	}); err != nil {
		log.Fatalf("Failed to provide middleware: %v", err)
	}
	if err := container.Provide(httpserver.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(httpserver.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// buildProvider constructs the adapter matching the configured provider,
// resolving the credential with the generic fallback key. An unsupported
// provider fails here, before the server accepts traffic.
func buildProvider(cfg *config.Config, client *http.Client) (domain.Provider, error) {
	apiKey, baseURL, err := cfg.ProviderCredentials()
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Geocoding.Provider) {
	case config.ProviderAmap:
		return amap.NewProvider(amap.Config{APIKey: apiKey, BaseURL: baseURL}, client)
	case config.ProviderBaidu:
		return baidu.NewProvider(baidu.Config{APIKey: apiKey, BaseURL: baseURL}, client)
	case config.ProviderGoogle:
		return google.NewProvider(google.Config{APIKey: apiKey, BaseURL: baseURL}, client)
	default:
		return nil, domain.NewConfigurationError(
			"unsupported geocoding provider: %s", cfg.Geocoding.Provider)
	}
}
