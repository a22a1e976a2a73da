package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secapi_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "secapi_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secapi_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialBackoff is the base the first delay is grown from.
	InitialBackoff time.Duration

	// MaxBackoff caps a single delay. Zero means no cap.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// Jitter scales every step by a random factor in [1, 2).
	Jitter bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        15,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Validate checks the configuration for values the retry loop cannot use.
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", c.MaxRetries)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be > 0 (got %v)", c.InitialBackoff)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be >= 1 (got %v)", c.BackoffMultiplier)
	}
	if c.MaxBackoff < 0 {
		return fmt.Errorf("max_backoff must be >= 0 (got %v)", c.MaxBackoff)
	}
	return nil
}

// nextBackoff grows delay by the multiplier and, with jitter, by a further
// random factor in [1, 2).
func (c RetryConfig) nextBackoff(delay time.Duration, random func() float64) time.Duration {
	next := float64(delay) * c.BackoffMultiplier
	if c.Jitter {
		next *= 1 + random()
	}
	if c.MaxBackoff > 0 && next > float64(c.MaxBackoff) {
		return c.MaxBackoff
	}
	return time.Duration(next)
}

// retryWithBackoff calls fn until it succeeds, returns an error that is not
// retriable, or MaxRetries retries have been spent. Sleeps between attempts
// respect context cancellation.
func retryWithBackoff(ctx context.Context, config RetryConfig, logger zerolog.Logger, fn func() error) error {
	delay := config.InitialBackoff

	for retries := 0; ; retries++ {
		err := fn()
		if err == nil {
			if retries > 0 {
				logger.Info().
					Int("retries", retries).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		errorClass := classOf(err)
		if !shouldRetry(errorClass) {
			return err
		}

		if retries >= config.MaxRetries {
			retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("max_retries", config.MaxRetries).
				Msg("Retry attempts exhausted")
			return fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, err)
		}

		delay = config.nextBackoff(delay, rand.Float64)
		wait := delay
		if hint := retryAfterOf(err); hint > wait {
			wait = hint
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		logger.Debug().
			Err(err).
			Str("error_class", string(errorClass)).
			Int("attempt", retries+1).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", retries+1).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}
}
