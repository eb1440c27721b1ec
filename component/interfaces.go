package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component represents a lifecycle-managed part of the service.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is the one-line summary a component logs at startup.
type Description struct {
	// Type categorizes the component: "database", "redis", "server", "worker".
	Type string
	// Details is a short human-readable configuration summary,
	// e.g. "sqlite ./data/yttext.db" or "workers=3 queue=100".
	Details string
}

// Describable is optionally implemented by components that want their
// configuration summarized in the startup log.
type Describable interface {
	Describe() Description
}
