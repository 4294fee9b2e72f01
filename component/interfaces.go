package component

import "context"

// HealthStatus is the state a component reports to /healthz and the
// startup summary.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded" // serving, but a source has failed
	StatusUnhealthy HealthStatus = "unhealthy"
)

// severity ranks statuses; anything unrecognised counts as unhealthy.
func (s HealthStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns whichever of s and other is more severe. An unrecognised
// status is reported as unhealthy.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if other.severity() > s.severity() {
		s = other
	}
	if s.severity() == 2 {
		return StatusUnhealthy
	}
	return s
}

// Health is one component's report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-lived part of the process: a view feed, the SSE
// server or the telemetry exporters. Start must return once the component
// is serving; Stop releases everything Start acquired.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is the line a component contributes to the startup summary.
// An empty Name falls back to the component's Name().
type Description struct {
	Name    string
	Type    string
	Details string
}

// Describable components appear in the startup summary.
type Describable interface {
	Describe() Description
}

// Route is an HTTP route served by a component, as listed in the summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is implemented by components that serve HTTP.
type RouteProvider interface {
	Routes() []Route
}
