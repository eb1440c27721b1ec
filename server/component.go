package server

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/yttext/component"
)

const componentName = "http-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Server under the component registry.
type Component struct {
	server  *Server
	running atomic.Bool
}

// NewComponent returns a component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Name returns the component name used for registration.
func (sc *Component) Name() string { return componentName }

// Start starts the underlying HTTP server.
func (sc *Component) Start(ctx context.Context) error {
	if err := sc.server.Start(ctx); err != nil {
		return err
	}
	sc.running.Store(true)
	return nil
}

// Stop gracefully shuts down the underlying HTTP server.
func (sc *Component) Stop(ctx context.Context) error {
	if !sc.running.Swap(false) {
		return nil
	}
	return sc.server.Stop(ctx)
}

// Health reports whether the server is listening.
func (sc *Component) Health(_ context.Context) component.Health {
	if sc.running.Load() {
		return component.Health{Name: componentName, Status: component.StatusHealthy}
	}
	return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
}

// Describe returns a startup summary.
func (sc *Component) Describe() component.Description {
	cfg := sc.server.config
	details := fmt.Sprintf("%s routes=%d", cfg.Addr(), len(sc.server.engine.Routes()))
	if cfg.RateLimit.Enabled {
		details += fmt.Sprintf(" rate_limit=%d/min", cfg.RateLimit.RequestsPerMinute)
	}
	return component.Description{Type: "server", Details: details}
}
