package app

import (
	"fmt"
	"time"

	"github.com/kbukum/yttext/cache"
	"github.com/kbukum/yttext/config"
	"github.com/kbukum/yttext/database"
	"github.com/kbukum/yttext/download/ytdlp"
	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/observability"
	"github.com/kbukum/yttext/redis"
	"github.com/kbukum/yttext/server"
	"github.com/kbukum/yttext/storage"
	"github.com/kbukum/yttext/transcription"
	"github.com/kbukum/yttext/version"
)

// ServiceName is the config file stem and environment prefix (YTTEXT_*).
const ServiceName = "yttext"

// Download policy defaults. A negative value disables the check.
const (
	DefaultMaxVideoDuration = int64(14400)
	DefaultMaxFileSize      = int64(2 << 30)
)

// Config is the full service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	API           APIConfig            `yaml:"api" mapstructure:"api"`
	Jobs          jobs.Config          `yaml:"jobs" mapstructure:"jobs"`
	Download      ytdlp.Config         `yaml:"download" mapstructure:"download"`
	Transcription transcription.Config `yaml:"transcription" mapstructure:"transcription"`
	Cache         cache.Config         `yaml:"cache" mapstructure:"cache"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// APIConfig tunes the job event streams.
type APIConfig struct {
	KeepAlive    time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// Default returns the configuration loaded files are merged over. Booleans
// that default to true live here since ApplyDefaults cannot tell them from
// an explicit false.
func Default() Config {
	return Config{
		ServiceConfig: config.ServiceConfig{Name: ServiceName},
		Cache:         cache.Config{Enabled: true},
	}
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Version == "" {
		c.Version = version.Get().Version
	}
	c.ServiceConfig.ApplyDefaults()

	c.Server.ApplyDefaults()
	c.Jobs.ApplyDefaults()
	c.Download.ApplyDefaults()
	if c.Download.MaxDurationSeconds == 0 {
		c.Download.MaxDurationSeconds = DefaultMaxVideoDuration
	}
	if c.Download.MaxFileSize == 0 {
		c.Download.MaxFileSize = DefaultMaxFileSize
	}
	c.Transcription.ApplyDefaults()
	c.Cache.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section and the cross-section requirements.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	// Sections whose messages already carry their key are left unwrapped.
	checks := []func() error{
		c.Server.Validate,
		c.Jobs.Validate,
		c.Transcription.Validate,
		c.Cache.Validate,
		c.Storage.Validate,
		c.Observability.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if c.Cache.Enabled && c.Cache.Backend == cache.BackendRedis && !c.Redis.Enabled {
		return fmt.Errorf("cache: backend %q requires redis.enabled", cache.BackendRedis)
	}
	return nil
}

// Validate rejects negative intervals.
func (c *APIConfig) Validate() error {
	if c.KeepAlive < 0 {
		return fmt.Errorf("keep_alive must be >= 0")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be >= 0")
	}
	return nil
}
