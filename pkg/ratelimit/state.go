// Package ratelimit paces requests to sec-api.io and shares 429 cooldowns
// between client instances. A local token bucket caps the request rate; when
// the API answers 429 Too Many Requests every client backs off until the
// cooldown recorded in Redis (or in memory) has passed.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyCooldownUntil  = "secapi:rate_limit:cooldown_until"
	RedisKeyConsecutive429 = "secapi:rate_limit:consecutive_429"
	RedisKeyLastUpdate     = "secapi:rate_limit:last_update"
)

// Cooldown bounds used when the API does not send Retry-After.
const (
	// DefaultCooldown is the first cooldown after a 429.
	DefaultCooldown = 1 * time.Second

	// MaxCooldown caps the doubled cooldown of consecutive 429s.
	MaxCooldown = 60 * time.Second
)

// State is the shared throttling state.
type State struct {
	// CooldownUntil is when requests may resume after a 429.
	CooldownUntil time.Time `json:"cooldown_until"`

	// Consecutive429 counts 429 responses since the last success.
	Consecutive429 int `json:"consecutive_429"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// InCooldown reports whether requests should currently wait.
func (s *State) InCooldown() bool {
	return time.Now().Before(s.CooldownUntil)
}

// TimeUntilReset returns the remaining cooldown, or 0 when none is active.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// nextCooldown doubles DefaultCooldown per consecutive 429, capped at MaxCooldown.
func nextCooldown(consecutive int) time.Duration {
	if consecutive < 1 {
		consecutive = 1
	}
	d := DefaultCooldown
	for i := 1; i < consecutive; i++ {
		d *= 2
		if d >= MaxCooldown {
			return MaxCooldown
		}
	}
	return d
}
