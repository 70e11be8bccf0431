package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/waypost/internal/domain"
	"github.com/davidbz/waypost/internal/provider/amap"
	"github.com/davidbz/waypost/internal/provider/baidu"
	"github.com/davidbz/waypost/internal/provider/google"
)

// Supported geocoding providers.
const (
	ProviderAmap   = "amap"
	ProviderBaidu  = "baidu"
	ProviderGoogle = "google"
)

// Config represents the service configuration. It is read once at startup
// and immutable thereafter.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Geocoding GeocodingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Amap      amap.Config
	Baidu     baidu.Config
	Google    google.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"4000"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// GeocodingConfig contains provider selection and resilience settings.
type GeocodingConfig struct {
	Provider string `env:"GEOCODING_PROVIDER" envDefault:"amap"`

	// APIKey is a generic fallback credential used when the selected
	// provider's own key is unset.
	APIKey string `env:"GEOCODING_API_KEY"`

	Timeout        int    `env:"GEOCODING_TIMEOUT"          envDefault:"10"` // seconds
	RetryTimes     int    `env:"GEOCODING_RETRY_TIMES"      envDefault:"3"`
	HealthCheckURL string `env:"GEOCODING_HEALTH_CHECK_URL" envDefault:"https://httpbin.org/status/200"`
}

// CacheConfig contains response cache settings.
type CacheConfig struct {
	Enabled bool `env:"CACHE_ENABLED"  envDefault:"true"`
	TTL     int  `env:"CACHE_TTL"      envDefault:"3600"` // seconds
	MaxSize int  `env:"CACHE_MAX_SIZE" envDefault:"1000"`
}

// RateLimitConfig contains fixed-window rate limiting settings. The window
// counters live in Redis; responses are never stored there.
type RateLimitConfig struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED"    envDefault:"false"`
	Requests  int    `env:"RATE_LIMIT_REQUESTS"   envDefault:"100"`
	Window    int    `env:"RATE_LIMIT_WINDOW"     envDefault:"60"` // seconds
	RedisAddr string `env:"RATE_LIMIT_REDIS_ADDR" envDefault:"localhost:6379"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*GeocodingConfig
	*CacheConfig
	*RateLimitConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Geocoding,
		&cfg.Cache,
		&cfg.RateLimit,
	}
}

// ProviderCredentials resolves the API key and base URL for the selected
// provider, falling back to the generic GEOCODING_API_KEY. An unrecognized
// provider is a configuration error with no fallback.
func (c *Config) ProviderCredentials() (apiKey, baseURL string, err error) {
	switch strings.ToLower(c.Geocoding.Provider) {
	case ProviderAmap:
		return fallbackKey(c.Amap.APIKey, c.Geocoding.APIKey), c.Amap.BaseURL, nil
	case ProviderBaidu:
		return fallbackKey(c.Baidu.APIKey, c.Geocoding.APIKey), c.Baidu.BaseURL, nil
	case ProviderGoogle:
		return fallbackKey(c.Google.APIKey, c.Geocoding.APIKey), c.Google.BaseURL, nil
	default:
		return "", "", domain.NewConfigurationError(
			"unsupported geocoding provider: %s", c.Geocoding.Provider)
	}
}

func fallbackKey(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
