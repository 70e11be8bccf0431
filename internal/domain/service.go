package domain

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/davidbz/waypost/internal/observability"
)

const (
	defaultRetryTimes = 3
	defaultHealthURL  = "https://httpbin.org/status/200"

	healthCheckTimeout = 5 * time.Second

	opGeocode        = "geocode"
	opReverseGeocode = "reverse_geocode"
)

// ServiceConfig carries the orchestrator settings that are read once at
// startup and immutable thereafter.
type ServiceConfig struct {
	// RetryTimes is the total number of provider attempts per request.
	RetryTimes int

	// HealthCheckURL is probed by HealthCheck as a generic reachability test.
	HealthCheckURL string
}

// GeocodingService sits between callers and the active provider, adding
// caching and bounded exponential-backoff retry without changing the
// provider contract. The provider binding is selected once at startup and
// never switched at runtime.
type GeocodingService struct {
	provider     Provider
	cache        Cache // nil when caching is disabled
	metrics      *observability.Metrics
	clock        clockwork.Clock
	retryTimes   int
	healthURL    string
	healthClient *http.Client
	startTime    time.Time
}

// NewGeocodingService creates the orchestrator (DI constructor).
func NewGeocodingService(
	provider Provider,
	cache Cache,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	cfg ServiceConfig,
) *GeocodingService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	retryTimes := cfg.RetryTimes
	if retryTimes <= 0 {
		retryTimes = defaultRetryTimes
	}

	healthURL := cfg.HealthCheckURL
	if healthURL == "" {
		healthURL = defaultHealthURL
	}

	return &GeocodingService{
		provider:     provider,
		cache:        cache,
		metrics:      metrics,
		clock:        clock,
		retryTimes:   retryTimes,
		healthURL:    healthURL,
		healthClient: &http.Client{Timeout: healthCheckTimeout},
		startTime:    clock.Now(),
	}
}

// Geocode resolves an address into coordinates through the cache-lookup,
// call-with-retry, cache-store pipeline.
func (s *GeocodingService) Geocode(ctx context.Context, req *GeocodeRequest) (*GeocodeResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)

	var key string
	if s.cache != nil {
		key = cacheKey(opGeocode, map[string]string{
			"address": req.Address,
			"city":    req.City,
		})
		if cached, ok := s.lookupCache(opGeocode, key); ok {
			if resp, isResp := cached.(*GeocodeResponse); isResp {
				logger.Debug("geocode served from cache",
					observability.String("address", req.Address))
				return resp, nil
			}
		}
	}

	result, err := s.callWithRetry(ctx, opGeocode, func(ctx context.Context) (any, error) {
		return s.provider.Geocode(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*GeocodeResponse)
	if s.cache != nil {
		s.cache.Set(key, resp)
	}
	return resp, nil
}

// ReverseGeocode resolves coordinates into an address through the same
// pipeline as Geocode.
func (s *GeocodingService) ReverseGeocode(
	ctx context.Context,
	req *ReverseGeocodeRequest,
) (*ReverseGeocodeResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)

	var key string
	if s.cache != nil {
		key = cacheKey(opReverseGeocode, map[string]string{
			"lat":    formatCoordinate(req.Latitude),
			"lng":    formatCoordinate(req.Longitude),
			"radius": strconv.Itoa(req.Radius),
		})
		if cached, ok := s.lookupCache(opReverseGeocode, key); ok {
			if resp, isResp := cached.(*ReverseGeocodeResponse); isResp {
				logger.Debug("reverse geocode served from cache",
					observability.Float64("lat", req.Latitude),
					observability.Float64("lng", req.Longitude))
				return resp, nil
			}
		}
	}

	result, err := s.callWithRetry(ctx, opReverseGeocode, func(ctx context.Context) (any, error) {
		return s.provider.ReverseGeocode(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*ReverseGeocodeResponse)
	if s.cache != nil {
		s.cache.Set(key, resp)
	}
	return resp, nil
}

// lookupCache checks the cache and records the hit/miss metric.
func (s *GeocodingService) lookupCache(op, key string) (any, bool) {
	cached, ok := s.cache.Get(key)
	if ok {
		s.metrics.CacheLookups.WithLabelValues(op, "hit").Inc()
		return cached, true
	}
	s.metrics.CacheLookups.WithLabelValues(op, "miss").Inc()
	return nil, false
}

// callWithRetry runs a single provider operation up to retryTimes attempts,
// sleeping 2^attempt seconds between attempts. No lock is held across the
// provider call or the backoff sleep. The last observed error is returned
// unchanged once attempts are exhausted.
func (s *GeocodingService) callWithRetry(
	ctx context.Context,
	op string,
	call func(ctx context.Context) (any, error),
) (any, error) {
	logger := observability.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= s.retryTimes; attempt++ {
		start := s.clock.Now()
		result, err := call(ctx)
		s.metrics.ProviderDuration.WithLabelValues(op).Observe(s.clock.Since(start).Seconds())

		if err == nil {
			s.metrics.ProviderRequests.WithLabelValues(op, "success").Inc()
			return result, nil
		}

		s.metrics.ProviderRequests.WithLabelValues(op, "error").Inc()
		lastErr = err

		if attempt == s.retryTimes {
			break
		}

		delay := time.Duration(1<<uint(attempt)) * time.Second
		logger.Warn("provider call failed, retrying",
			observability.String("operation", op),
			observability.Int("attempt", attempt),
			observability.Int("max_attempts", s.retryTimes),
			observability.Duration("backoff", delay),
			observability.Error(err))

		select {
		case <-s.clock.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	logger.Error("provider call failed after all attempts",
		observability.String("operation", op),
		observability.Int("attempts", s.retryTimes),
		observability.Error(lastErr))

	if lastErr == nil {
		// Defensive fallback: retryTimes attempts ran without producing
		// either a result or an error.
		lastErr = NewProviderError(s.provider.Name(), op, "no attempts executed", nil)
	}
	return nil, lastErr
}

// HealthCheck is a best-effort liveness probe independent of the provider.
// Failures are logged and reported as false, never returned as errors.
func (s *GeocodingService) HealthCheck(ctx context.Context) bool {
	if s.provider == nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.healthURL, nil)
	if err != nil {
		observability.FromContext(ctx).Error("health check failed", observability.Error(err))
		return false
	}

	resp, err := s.healthClient.Do(req)
	if err != nil {
		observability.FromContext(ctx).Error("health check failed", observability.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// CacheStats returns a read-only snapshot of the response cache.
func (s *GeocodingService) CacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{Enabled: false}
	}
	stats := s.cache.Stats()
	stats.Enabled = true
	return stats
}

// Uptime reports how long the service has been running.
func (s *GeocodingService) Uptime() time.Duration {
	return s.clock.Since(s.startTime)
}

// cacheKey builds a deterministic key from the operation name and sorted
// parameter name/value pairs.
func cacheKey(operation string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(params)+1)
	parts = append(parts, operation)
	for _, name := range names {
		parts = append(parts, name+":"+params[name])
	}
	return strings.Join(parts, ":")
}

// formatCoordinate rounds a coordinate to 6 decimal places before key
// construction so floating-point jitter collapses onto one cache entry.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
