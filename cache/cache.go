package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Store is a content-addressed cache of transcription results.
type Store interface {
	// Get returns the entry for (url, model), or nil on a miss.
	// Expired, empty and malformed entries are removed and reported as misses.
	Get(ctx context.Context, url, model string) (*Entry, error)

	// Set stores a result. Results with empty text are skipped.
	Set(ctx context.Context, url, model string, result Result) error

	// InvalidateURL removes every entry recorded for url and returns the count.
	InvalidateURL(ctx context.Context, url string) (int, error)

	// Stats reports the current size and hit counters.
	Stats(ctx context.Context) (Stats, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Prune drops TTL-expired entries and returns how many were removed.
	Prune(ctx context.Context) (int, error)
}

// Result is the payload written after a successful transcription.
type Result struct {
	Text             string
	Title            string
	Duration         float64
	ModelUsed        string
	DetectedLanguage string
}

// Entry is a stored result plus its bookkeeping.
type Entry struct {
	Key              string    `json:"key"`
	URL              string    `json:"url"`
	Model            string    `json:"model"`
	Text             string    `json:"text"`
	Title            string    `json:"title,omitempty"`
	Duration         float64   `json:"duration,omitempty"`
	ModelUsed        string    `json:"model_used,omitempty"`
	DetectedLanguage string    `json:"language,omitempty"`
	CachedAt         time.Time `json:"cached_at"`
	LastAccess       time.Time `json:"last_access"`
	Size             int64     `json:"size"`
}

// Stats mirrors the cache statistics endpoint.
type Stats struct {
	Enabled bool  `json:"enabled"`
	Entries int   `json:"size"`
	Volume  int64 `json:"volume"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Key returns the hex sha256 of "url:model".
func Key(url, model string) string {
	sum := sha256.Sum256([]byte(url + ":" + model))
	return hex.EncodeToString(sum[:])
}

// NewEntry builds an entry for result cached at now.
// Size is the length of the entry's JSON encoding.
func NewEntry(url, model string, result Result, now time.Time) *Entry {
	e := &Entry{
		Key:              Key(url, model),
		URL:              url,
		Model:            model,
		Text:             result.Text,
		Title:            result.Title,
		Duration:         result.Duration,
		ModelUsed:        result.ModelUsed,
		DetectedLanguage: result.DetectedLanguage,
		CachedAt:         now,
		LastAccess:       now,
	}
	e.Size = SizeOf(e)
	return e
}

// SizeOf returns the encoded size of e in bytes.
func SizeOf(e *Entry) int64 {
	data, err := json.Marshal(e)
	if err != nil {
		return int64(len(e.Text))
	}
	return int64(len(data))
}

// Valid reports whether e can be served.
func (e *Entry) Valid() bool {
	return e != nil && strings.TrimSpace(e.Text) != ""
}

// Expired reports whether e is older than ttl at now. A zero ttl never expires.
func (e *Entry) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.CachedAt) >= ttl
}

// Counters tracks hits and misses for Stats.
type Counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// Hit records a cache hit.
func (c *Counters) Hit() { c.hits.Add(1) }

// Miss records a cache miss.
func (c *Counters) Miss() { c.misses.Add(1) }

// Load returns the current hit and miss counts.
func (c *Counters) Load() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Reset zeroes both counters.
func (c *Counters) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// Config configures the result cache.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Backend selects the store: "memory" or "redis".
	Backend string `yaml:"backend" mapstructure:"backend"`

	// TTL is how long an entry stays valid after it is written.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// SizeLimit caps the aggregate entry size in bytes.
	SizeLimit int64 `yaml:"size_limit" mapstructure:"size_limit"`

	// PruneInterval is how often expired entries are swept. Zero disables the sweep.
	PruneInterval time.Duration `yaml:"prune_interval" mapstructure:"prune_interval"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DefaultTTL           = 604800 * time.Second
	DefaultSizeLimit     = int64(1 << 30)
	DefaultPruneInterval = time.Hour
)

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.SizeLimit <= 0 {
		c.SizeLimit = DefaultSizeLimit
	}
	if c.PruneInterval == 0 {
		c.PruneInterval = DefaultPruneInterval
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Backend)
	}
	if c.SizeLimit <= 0 {
		return fmt.Errorf("cache.size_limit must be > 0")
	}
	return nil
}
