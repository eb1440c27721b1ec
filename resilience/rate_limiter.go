package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a rate limiter rejects a request.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// Rate is the number of tokens added per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// OnLimit is called when a request is rate limited.
	OnLimit func(name string)
}

// PerMinute builds a config from a requests-per-minute figure.
func PerMinute(name string, rpm, burst int) RateLimiterConfig {
	return RateLimiterConfig{Name: name, Rate: float64(rpm) / 60, Burst: burst}
}

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return newRateLimiter(config, time.Now)
}

func newRateLimiter(config RateLimiterConfig, now func() time.Time) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 1
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &RateLimiter{
		config:     config,
		now:        now,
		tokens:     float64(config.Burst),
		lastRefill: now(),
	}
}

// Allow reports whether one request may proceed now and consumes a token if so.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}
		timer := time.NewTimer(rl.untilNextToken())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Execute runs fn if a token is available, otherwise returns ErrRateLimited.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

func (rl *RateLimiter) untilNextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	missing := 1 - rl.tokens
	if missing <= 0 {
		return time.Millisecond
	}
	return time.Duration(missing / rl.config.Rate * float64(time.Second))
}

// KeyedRateLimiter keeps an independent token bucket per key (e.g. client IP).
// Buckets idle for longer than a full refill are dropped by Sweep.
type KeyedRateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*RateLimiter
}

// NewKeyedRateLimiter creates a per-key limiter.
func NewKeyedRateLimiter(config RateLimiterConfig) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*RateLimiter),
	}
}

// Allow consumes a token from key's bucket.
func (k *KeyedRateLimiter) Allow(key string) bool {
	k.mu.Lock()
	rl, ok := k.buckets[key]
	if !ok {
		rl = newRateLimiter(k.config, k.now)
		k.buckets[key] = rl
	}
	k.mu.Unlock()
	return rl.Allow()
}

// Sweep removes buckets that have refilled completely and returns how many were dropped.
func (k *KeyedRateLimiter) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	removed := 0
	for key, rl := range k.buckets {
		if rl.Tokens() >= float64(rl.config.Burst) {
			delete(k.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
