package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/yttext/errors"
	"github.com/kbukum/yttext/resilience"
)

// sweepInterval bounds how long idle client buckets are kept.
const sweepInterval = 5 * time.Minute

// RateLimitConfig configures per-client submission limits.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
	// KeyFunc extracts the limit key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in 60 requests per minute with a burst of 10.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
}

// RateLimit applies a token bucket per client and answers 429 RATE_LIMITED
// once a client's bucket is empty.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	cfg.ApplyDefaults()
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}

	limiter := resilience.NewKeyedRateLimiter(resilience.PerMinute("http-submit", cfg.RequestsPerMinute, cfg.Burst))
	var (
		mu        sync.Mutex
		lastSweep = time.Now()
	)

	return func(c *gin.Context) {
		mu.Lock()
		if time.Since(lastSweep) > sweepInterval {
			lastSweep = time.Now()
			limiter.Sweep()
		}
		mu.Unlock()

		if !limiter.Allow(cfg.KeyFunc(c)) {
			appErr := apperrors.RateLimited("Too many requests, please slow down")
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey uses the client IP as the limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
