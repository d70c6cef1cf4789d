// Package ratelimit enforces per-user request limits over a fixed window,
// backed by a shared Redis counter so enforcement stays correct across
// horizontally scaled instances. Redis outages fail open: a request is
// allowed rather than blocked when the counter store is unreachable.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for rate limit decisions.
var (
	rateLimitAllowedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_rate_limit_allowed_total",
		Help: "Total requests allowed by the rate limiter",
	})

	rateLimitDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_rate_limit_denied_total",
		Help: "Total requests denied by the rate limiter",
	})

	rateLimitBypassedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_rate_limit_bypassed_total",
		Help: "Total requests bypassing the rate limiter (privileged users)",
	})

	rateLimitFailOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_rate_limit_fail_open_total",
		Help: "Total requests allowed because the counter store errored (fail open)",
	})
)

const keyPrefix = "rate_limit:user"

// Config holds the limiter configuration.
type Config struct {
	// Limit is the maximum number of requests per user per window.
	Limit int

	// Window is the fixed window length.
	Window time.Duration
}

// Limiter enforces a fixed-window per-user limit using Redis INCR + EXPIRE.
type Limiter struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// Decision is the outcome of an Allow call.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Bypassed is true when the caller was privileged and no counter was touched.
	Bypassed bool

	// RetryAfter is the suggested wait before retrying. Only set when denied.
	RetryAfter time.Duration
}

// Status is a read-only view of a user's current window.
type Status struct {
	Limit     int
	Remaining int
	Window    time.Duration

	// ResetAt is when the current window expires. Zero when no window is open
	// or the counter's TTL cannot be determined.
	ResetAt time.Time
}

// NewLimiter creates a rate limiter backed by the given Redis client.
func NewLimiter(redisClient *redis.Client, cfg Config) (*Limiter, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive (got %d)", cfg.Limit)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("window must be positive (got %s)", cfg.Window)
	}

	return &Limiter{
		redis:  redisClient,
		config: cfg,
		logger: log.With().Str("component", "ratelimit").Logger(),
	}, nil
}

// Limit returns the configured per-window limit.
func (l *Limiter) Limit() int {
	return l.config.Limit
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.config.Window
}

// Allow atomically consumes one unit of the user's budget for the given action
// and decides whether the request may proceed. Privileged callers bypass the
// counter entirely. Store errors are logged and the request is allowed.
func (l *Limiter) Allow(ctx context.Context, userID, action string, privileged bool) Decision {
	if privileged {
		rateLimitBypassedTotal.Inc()
		l.logger.Debug().Str("user_id", userID).Str("action", action).Msg("rate limit bypassed for privileged user")
		return Decision{Allowed: true, Bypassed: true}
	}

	key := counterKey(userID, action)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return l.failOpen(userID, action, err)
	}

	// First request in this window opens it; the key's TTL is the window end.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return l.failOpen(userID, action, err)
		}
		l.logger.Info().
			Str("user_id", userID).
			Str("action", action).
			Dur("window", l.config.Window).
			Msg("rate limit window opened")
	}

	if count > int64(l.config.Limit) {
		retryAfter := l.config.Window
		if ttl, err := l.redis.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}

		rateLimitDeniedTotal.Inc()
		l.logger.Warn().
			Str("user_id", userID).
			Str("action", action).
			Int64("count", count).
			Int("limit", l.config.Limit).
			Dur("retry_after", retryAfter).
			Msg("rate limit exceeded")

		return Decision{Allowed: false, RetryAfter: retryAfter}
	}

	rateLimitAllowedTotal.Inc()
	l.logger.Debug().
		Str("user_id", userID).
		Str("action", action).
		Int64("count", count).
		Msg("rate limit check passed")

	return Decision{Allowed: true}
}

// Status reports the user's remaining budget and window reset time without
// consuming anything. A missing counter means a fresh window: full limit,
// zero reset time. A counter stuck without TTL reports an unknown reset,
// never "never expires".
func (l *Limiter) Status(ctx context.Context, userID, action string) (Status, error) {
	status := Status{
		Limit:     l.config.Limit,
		Remaining: l.config.Limit,
		Window:    l.config.Window,
	}

	key := counterKey(userID, action)

	count, err := l.redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return status, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("get rate limit counter: %w", err)
	}

	status.Remaining = l.config.Limit - int(count)
	if status.Remaining < 0 {
		status.Remaining = 0
	}

	if ttl, err := l.redis.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		status.ResetAt = time.Now().Add(ttl)
	}

	return status, nil
}

// failOpen allows a request despite a counter store failure.
func (l *Limiter) failOpen(userID, action string, err error) Decision {
	rateLimitFailOpenTotal.Inc()
	l.logger.Error().
		Err(err).
		Str("user_id", userID).
		Str("action", action).
		Msg("rate limit store error, allowing request (fail open)")

	return Decision{Allowed: true}
}

// counterKey builds the Redis key for a user's action counter.
func counterKey(userID, action string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, userID, action)
}
