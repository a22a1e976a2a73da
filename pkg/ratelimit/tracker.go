package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	cooldownSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "secapi_rate_limit_cooldown_seconds",
		Help: "Length of the most recent 429 cooldown in seconds",
	})

	cooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secapi_rate_limit_cooldowns_total",
		Help: "Total number of cooldowns started by 429 responses",
	})

	throttlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secapi_rate_limit_throttles_total",
		Help: "Total number of requests delayed by an active cooldown",
	})
)

// Config holds the local pacing configuration.
type Config struct {
	// RequestsPerSecond caps outgoing requests. Zero or less disables pacing.
	RequestsPerSecond float64

	// Burst is the token bucket size (minimum 1).
	Burst int
}

// Tracker paces requests and tracks 429 cooldowns.
type Tracker struct {
	limiter *rate.Limiter
	redis   *redis.Client
	logger  zerolog.Logger

	mu    sync.Mutex
	local State
}

// NewTracker creates a new rate limit tracker. redisClient may be nil, in
// which case the cooldown state is kept in process memory.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Tracker{
		limiter: rate.NewLimiter(limit, burst),
		redis:   redisClient,
		logger:  logger,
	}
}

// GetState returns the current cooldown state.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.local
		return &state, nil
	}

	cooldownNanos, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	if errors.Is(err, redis.Nil) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cooldown: %w", err)
	}

	consecutive, err := t.redis.Get(ctx, RedisKeyConsecutive429).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get consecutive 429 count: %w", err)
	}

	state := &State{
		CooldownUntil:  time.Unix(0, cooldownNanos),
		Consecutive429: consecutive,
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}
	if len(lastUpdate) > 0 {
		if err := json.Unmarshal(lastUpdate, &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return state, nil
}

// Wait blocks until the local limiter admits a request and any active
// cooldown has passed.
func (t *Tracker) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	state, err := t.GetState(ctx)
	if err != nil {
		// A broken state store must not stop traffic.
		t.logger.Warn().Err(err).Msg("Failed to read rate limit state")
		return nil
	}
	if !state.InCooldown() {
		return nil
	}

	wait := state.TimeUntilReset()
	throttlesTotal.Inc()
	t.logger.Warn().
		Int("consecutive_429", state.Consecutive429).
		Dur("wait_duration", wait).
		Msg("sec-api.io cooldown active - delaying request")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UpdateFromResponse records a 429 cooldown or clears it after a success.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil {
		return nil
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		state, cooldown, err := t.record429(ctx, resp.Header)
		if err != nil {
			return err
		}

		cooldownsTotal.Inc()
		cooldownSeconds.Set(cooldown.Seconds())
		t.logger.Warn().
			Int("consecutive_429", state.Consecutive429).
			Dur("cooldown", cooldown).
			Msg("sec-api.io rate limit hit - cooldown started")
		return nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		state, err := t.GetState(ctx)
		if err != nil || state.Consecutive429 == 0 {
			return err
		}
		t.logger.Info().Msg("sec-api.io rate limit cleared")
		return t.reset(ctx)
	}

	return nil
}

// record429 escalates the cooldown. In memory the whole read-modify-write
// runs under t.mu so concurrent 429s each see the previous count.
func (t *Tracker) record429(ctx context.Context, headers http.Header) (State, time.Duration, error) {
	apply := func(state *State) time.Duration {
		// A 429 long after the previous one starts a new escalation.
		if state.IsStale(MaxCooldown) {
			state.Consecutive429 = 0
		}
		state.Consecutive429++

		cooldown, ok := RetryAfter(headers)
		if !ok {
			cooldown = nextCooldown(state.Consecutive429)
		}
		now := time.Now()
		state.CooldownUntil = now.Add(cooldown)
		state.LastUpdate = now
		return cooldown
	}

	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		cooldown := apply(&t.local)
		return t.local, cooldown, nil
	}

	state, err := t.GetState(ctx)
	if err != nil {
		state = &State{}
	}
	cooldown := apply(state)
	if err := t.storeRedis(ctx, state); err != nil {
		return State{}, 0, err
	}
	return *state, cooldown, nil
}

func (t *Tracker) storeRedis(ctx context.Context, state *State) error {
	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	// Keep the counter around long enough for the next 429 to see it.
	expiry := time.Until(state.CooldownUntil) + MaxCooldown
	if expiry < MaxCooldown {
		expiry = MaxCooldown
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyCooldownUntil, state.CooldownUntil.UnixNano(), expiry)
	pipe.Set(ctx, RedisKeyConsecutive429, state.Consecutive429, expiry)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

func (t *Tracker) reset(ctx context.Context) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = State{}
		t.mu.Unlock()
		return nil
	}

	if err := t.redis.Del(ctx, RedisKeyCooldownUntil, RedisKeyConsecutive429, RedisKeyLastUpdate).Err(); err != nil {
		return fmt.Errorf("reset rate limit state in redis: %w", err)
	}
	return nil
}

// RetryAfter parses a Retry-After header given either in seconds or as an
// HTTP date.
func RetryAfter(headers http.Header) (time.Duration, bool) {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
