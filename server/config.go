package server

import (
	"fmt"

	"github.com/kbukum/yttext/server/middleware"
)

// EphemeralPort asks the kernel for any free port; zero means the default.
const EphemeralPort = -1

// Config holds HTTP server configuration.
type Config struct {
	Host            string                     `yaml:"host" mapstructure:"host"`
	Port            int                        `yaml:"port" mapstructure:"port"`
	ReadTimeout     int                        `yaml:"read_timeout" mapstructure:"read_timeout"`         // seconds
	WriteTimeout    int                        `yaml:"write_timeout" mapstructure:"write_timeout"`       // seconds, lifted for SSE streams
	IdleTimeout     int                        `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // seconds
	ShutdownTimeout int                        `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	MaxBodySize     string                     `yaml:"max_body_size" mapstructure:"max_body_size"`       // e.g. "64KB"
	CORS            middleware.CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit       middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "64KB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	}
	c.RateLimit.ApplyDefaults()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < EphemeralPort || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, or -1 for any free port (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("server.rate_limit needs positive requests_per_minute and burst")
	}
	return nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, max(c.Port, 0))
}
