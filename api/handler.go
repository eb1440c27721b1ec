package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/yttext/cache"
	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/server/endpoint"
	"github.com/kbukum/yttext/server/middleware"
	"github.com/kbukum/yttext/sse"
	"github.com/kbukum/yttext/transcription"
)

// JobService is the part of the orchestrator the handlers use.
type JobService interface {
	CreateJob(ctx context.Context, req jobs.CreateRequest) (*jobs.Job, error)
	GetJob(ctx context.Context, id string) (*jobs.Job, error)
	RetryJob(ctx context.Context, id string) (*jobs.Job, error)
	StreamJobUpdates(ctx context.Context, id string) <-chan jobs.Job
}

// BackendLister reports the registered transcription backends.
type BackendLister interface {
	Info(ctx context.Context) []transcription.Info
}

// Subscriber registers SSE clients. *sse.Hub satisfies it.
type Subscriber interface {
	Register(c *sse.Client)
	Unregister(c *sse.Client)
}

// Defaults for Config.
const (
	DefaultKeepAlive    = 15 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Config tunes the handlers.
type Config struct {
	// RateLimit applies to job submission only.
	RateLimit middleware.RateLimitConfig

	// KeepAlive is the SSE comment interval.
	KeepAlive time.Duration

	// PollInterval is how often an SSE stream re-reads the job in case a
	// hub event was dropped.
	PollInterval time.Duration
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.KeepAlive <= 0 {
		c.KeepAlive = DefaultKeepAlive
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Handler serves the public API.
type Handler struct {
	cfg      Config
	jobs     JobService
	cache    cache.Store
	backends BackendLister
	hub      Subscriber
	log      *logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithCache exposes cache statistics and invalidation.
func WithCache(store cache.Store) Option {
	return func(h *Handler) { h.cache = store }
}

// WithBackends exposes the backend listing.
func WithBackends(b BackendLister) Option {
	return func(h *Handler) { h.backends = b }
}

// WithHub streams events from the hub. Without one, event streams poll
// the job service.
func WithHub(hub Subscriber) Option {
	return func(h *Handler) { h.hub = hub }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// New creates a Handler over svc.
func New(cfg Config, svc JobService, opts ...Option) *Handler {
	cfg.ApplyDefaults()
	h := &Handler{
		cfg:   cfg,
		jobs:  svc,
		cache: cache.NewNoop(),
		log:   logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithComponent("api")
	return h
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api")

	submit := []gin.HandlerFunc{h.createJob}
	if h.cfg.RateLimit.Enabled {
		submit = append([]gin.HandlerFunc{middleware.RateLimit(h.cfg.RateLimit)}, submit...)
	}
	g.POST("/transcribe", submit...)

	g.GET("/jobs/:id", h.getJob)
	g.GET("/jobs/:id/result", h.getResult)
	g.POST("/jobs/:id/retry", h.retryJob)
	g.GET("/jobs/:id/events", h.streamEvents)

	g.GET("/backends", h.listBackends)
	g.GET("/cache/stats", h.cacheStats)
	g.DELETE("/cache", h.clearCache)
}

// BackendsReady is a readiness gate requiring at least one available
// transcription backend.
func BackendsReady(b BackendLister) endpoint.ReadyCheck {
	return func(ctx context.Context) (bool, string) {
		infos := b.Info(ctx)
		for _, info := range infos {
			if info.Available {
				return true, ""
			}
		}
		return false, fmt.Sprintf("no transcription backend available (%d registered)", len(infos))
	}
}
