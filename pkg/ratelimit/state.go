// Package ratelimit tracks the WaniKani request rate limit.
// It reads the RateLimit-Limit, RateLimit-Remaining and RateLimit-Reset
// headers of every response and refuses requests locally while the current
// window is exhausted, instead of spending a request on a certain 429.
package ratelimit

import (
	"time"
)

// RedisKeyPrefix namespaces the rate limit state hash. The full key is
// RedisKeyPrefix + ":" + scope, one hash per token.
const RedisKeyPrefix = "wanikani:rate_limit"

// Hash fields of the stored state.
const (
	fieldLimit      = "limit"
	fieldRemaining  = "remaining"
	fieldReset      = "reset"
	fieldLastUpdate = "last_update"
)

// ThresholdWarning is the remaining-request count below which state updates
// are logged at warn level.
const ThresholdWarning = 5

// DefaultLimit is WaniKani's documented requests per minute per token. Used
// until the first response reports the real value.
const DefaultLimit = 60

// RateLimitState represents the current rate limit window.
type RateLimitState struct {
	// Limit is the window size in requests (RateLimit-Limit).
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the window
	// (RateLimit-Remaining).
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets (RateLimit-Reset, unix seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while Remaining >= ThresholdWarning.
	IsHealthy bool `json:"is_healthy"`
}

// defaultState is assumed until real headers arrive.
func defaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Limit:      DefaultLimit,
		Remaining:  DefaultLimit,
		ResetAt:    now.Add(time.Minute),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock returns true while the window is exhausted and has not reset yet.
func (s *RateLimitState) NeedsBlock() bool {
	return s.Remaining <= 0 && time.Now().Before(s.ResetAt)
}

// NeedsWarning returns true when few requests are left but the window is
// not exhausted.
func (s *RateLimitState) NeedsWarning() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdWarning
}
