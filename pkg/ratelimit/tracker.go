package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wanikani_rate_limit_remaining",
		Help: "Requests remaining in the current WaniKani rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanikani_rate_limit_blocks_total",
		Help: "Total number of requests refused locally because the rate limit window was exhausted",
	})
)

// Tracker monitors the WaniKani rate limit and gates requests.
//
// With a Redis client the state is shared by every process using the same
// token. Without one it is kept in memory.
type Tracker struct {
	redis  *redis.Client
	key    string
	logger zerolog.Logger

	mu    sync.Mutex
	local *RateLimitState
}

// NewTracker creates a new rate limit tracker. scope identifies the token
// whose window is tracked; redisClient may be nil.
func NewTracker(redisClient *redis.Client, scope string, logger zerolog.Logger) *Tracker {
	key := RedisKeyPrefix
	if scope != "" {
		key += ":" + scope
	}
	return &Tracker{
		redis:  redisClient,
		key:    key,
		logger: logger,
	}
}

// Key returns the Redis key holding the state hash.
func (t *Tracker) Key() string {
	return t.key
}

// GetState returns the current rate limit state.
// Returns a default healthy state if nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return defaultState(), nil
		}
		state := *t.local
		return &state, nil
	}

	fields, err := t.redis.HGetAll(ctx, t.key).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if len(fields) == 0 {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return defaultState(), nil
	}

	state := &RateLimitState{}
	if state.Limit, err = strconv.Atoi(fields[fieldLimit]); err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}
	if state.Remaining, err = strconv.Atoi(fields[fieldRemaining]); err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	reset, err := strconv.ParseInt(fields[fieldReset], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset: %w", err)
	}
	state.ResetAt = time.Unix(reset, 0)
	if lu := fields[fieldLastUpdate]; lu != "" {
		if state.LastUpdate, err = time.Parse(time.RFC3339Nano, lu); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses the RateLimit-* headers and stores the new state.
// Responses without RateLimit-Remaining leave the state unchanged.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("RateLimit-Remaining")
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse RateLimit-Remaining header: %w", err)
	}

	resetStr := headers.Get("RateLimit-Reset")
	if resetStr == "" {
		return fmt.Errorf("RateLimit-Reset header missing")
	}
	reset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse RateLimit-Reset header: %w", err)
	}

	limit := DefaultLimit
	if limitStr := headers.Get("RateLimit-Limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return fmt.Errorf("parse RateLimit-Limit header: %w", err)
		}
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    time.Unix(reset, 0),
		LastUpdate: time.Now(),
	}
	state.UpdateHealth()

	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
	} else {
		pipe := t.redis.TxPipeline()
		pipe.HSet(ctx, t.key, map[string]interface{}{
			fieldLimit:      state.Limit,
			fieldRemaining:  state.Remaining,
			fieldReset:      reset,
			fieldLastUpdate: state.LastUpdate.Format(time.RFC3339Nano),
		})
		pipe.ExpireAt(ctx, t.key, state.ResetAt.Add(time.Minute))
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store rate limit state in redis: %w", err)
		}
	}

	rateLimitRemaining.Set(float64(remain))

	if state.NeedsWarning() || remain <= 0 {
		t.logger.Warn().
			Int("remaining", remain).
			Int("limit", limit).
			Time("reset_at", state.ResetAt).
			Msg("WaniKani rate limit nearly exhausted")
	} else {
		t.logger.Debug().
			Int("remaining", remain).
			Int("limit", limit).
			Time("reset_at", state.ResetAt).
			Msg("WaniKani rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now. When it may
// not, the returned duration is the time until the window resets.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, time.Duration, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsBlock() {
		wait := state.TimeUntilReset()
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", wait).
			Msg("WaniKani rate limit exhausted - refusing request")
		rateLimitBlocksTotal.Inc()
		return false, wait, nil
	}

	return true, 0, nil
}
