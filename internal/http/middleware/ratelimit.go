package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/waypost/internal/config"
	"github.com/davidbz/waypost/internal/observability"
)

// RateLimit creates a fixed-window rate limiting middleware keyed on client
// IP, with window counters held in Redis. When Redis is unreachable the
// request is allowed through: availability wins over strictness here.
func RateLimit(cfg *config.RateLimitConfig, client *redis.Client) Middleware {
	if cfg == nil || !cfg.Enabled || client == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	window := time.Duration(cfg.Window) * time.Second

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "ratelimit:" + clientIP(r)

			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				observability.FromContext(ctx).Warn("rate limit check failed, allowing request",
					observability.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if count == 1 {
				client.Expire(ctx, key, window)
			}

			if count > int64(cfg.Requests) {
				w.Header().Set("Retry-After", strconv.Itoa(cfg.Window))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
