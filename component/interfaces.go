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
	Name    string         `json:"name"`
	Status  HealthStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Component represents a lifecycle-managed part of a service.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop shuts the component down and releases its resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information for startup logging.
type Description struct {
	// Name is the human-readable display name. If empty, Name() is used.
	Name string
	// Type categorizes the component, e.g. "cache".
	Type string
	// Details is a one-liner such as "prune=30s batch=256".
	Details string
}

// Describable is optionally implemented by Components to report what they
// are and how they are configured.
type Describable interface {
	Describe() Description
}

// Route holds a single HTTP route.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is optionally implemented by components that mount HTTP
// routes.
type RouteProvider interface {
	Routes() []Route
}
