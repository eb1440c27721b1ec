package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/yttext/component"
	"github.com/kbukum/yttext/logger"
)

// healthProbePath is checked on every health call; it never needs to exist.
const healthProbePath = ".health"

// Component wraps Storage and implements component.Component for lifecycle management.
type Component struct {
	mu      sync.RWMutex
	storage Storage
	cfg     Config
	log     *logger.Logger
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a storage component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("storage"),
	}
}

// Storage returns the underlying Storage, or nil when disabled or not started.
func (c *Component) Storage() Storage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage
}

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start initializes the storage backend.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("Storage component is disabled")
		return nil
	}

	s, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.mu.Lock()
	c.storage = s
	c.mu.Unlock()
	return nil
}

// Stop drops the backend; archival is skipped from then on.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	c.storage = nil
	c.mu.Unlock()
	return nil
}

// Health returns the current health status of the storage component.
func (c *Component) Health(ctx context.Context) component.Health {
	if !c.cfg.Enabled {
		return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: "disabled"}
	}

	s := c.Storage()
	if s == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "storage not initialized"}
	}

	if _, err := s.Exists(ctx, healthProbePath); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("health probe failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns a startup summary.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s prefix=%s", c.cfg.Provider, c.cfg.Prefix)
	switch {
	case !c.cfg.Enabled:
		details = "disabled"
	case c.cfg.Provider == ProviderS3:
		details += fmt.Sprintf(" bucket=%s", c.cfg.Bucket)
	case c.cfg.Provider == ProviderLocal:
		details += fmt.Sprintf(" path=%s", c.cfg.BasePath)
	}
	return component.Description{Type: "storage", Details: details}
}
