package resilience

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is the number of requests allowed per second. 0 disables limiting.
	Rate  float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	Burst int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// RateLimiter is a token bucket. A nil *RateLimiter never waits.
type RateLimiter struct {
	lim *rate.Limiter
	now func() time.Time
}

// NewRateLimiter returns nil when cfg.Rate is zero. A zero Burst allows
// one second's worth of requests at once.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(math.Ceil(cfg.Rate))
	}
	return &RateLimiter{
		lim: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		now: time.Now,
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	if rl == nil {
		return true
	}
	return rl.lim.AllowN(rl.now(), 1)
}

// Wait blocks until a token is available or ctx is done. Waiters are
// served in arrival order.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.lim.Wait(ctx)
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	if rl == nil {
		return 0
	}
	return rl.lim.TokensAt(rl.now())
}

// Burst returns the bucket size.
func (rl *RateLimiter) Burst() int {
	if rl == nil {
		return 0
	}
	return rl.lim.Burst()
}
