package youtube

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	apiRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_api_retries_total",
		Help: "Total number of transient-error retry attempts against the upstream API",
	})

	apiRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "virascope_api_retry_backoff_seconds",
		Help:    "Backoff duration for upstream retries",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	})

	apiRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virascope_api_retry_exhausted_total",
		Help: "Total number of times upstream retry attempts were exhausted",
	})
)

// RetryConfig holds the configuration for transient-error retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retryTransient executes fn, retrying with jittered exponential backoff as
// long as it fails with a transient-classified error. Quota, bad-request and
// auth errors return immediately so the caller can react (rotate the key or
// surface the failure). Respects context cancellation during backoff.
func retryTransient(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().Int("attempt", attempt).Msg("request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !shouldRetry(apiErr.Class) {
			return lastErr
		}

		if attempt >= config.MaxAttempts {
			break
		}

		apiRetriesTotal.Inc()

		// ±20% jitter to avoid synchronized retries
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		apiRetryBackoffSeconds.Observe(jitter.Seconds())

		log.Debug().
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("retrying request after backoff")

		select {
		case <-ctx.Done():
			log.Warn().Int("attempt", attempt).Msg("context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	apiRetryExhaustedTotal.Inc()
	log.Warn().Int("max_attempts", config.MaxAttempts).Msg("retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
