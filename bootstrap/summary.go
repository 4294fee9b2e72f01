package bootstrap

import (
	"context"
	"time"

	"github.com/kbukum/rxkit/component"
	"github.com/kbukum/rxkit/logger"
)

// Summary collects what the startup summary reports.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
}

// NewSummary creates a summary for a service.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records how long startup took.
func (s *Summary) SetStartupDuration(d time.Duration) { s.startupDuration = d }

// StartupDuration returns the recorded startup duration.
func (s *Summary) StartupDuration() time.Duration { return s.startupDuration }

// Lines renders one line per component, then one per route.
func (s *Summary) Lines(ctx context.Context, registry *component.Registry) []string {
	lines := []string{s.serviceName + " " + s.version + " started in " + s.startupDuration.Round(time.Millisecond).String()}

	health := registry.HealthAll(ctx)
	for i, c := range registry.All() {
		name, kind, details := c.Name(), "component", ""
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name != "" {
				name = desc.Name
			}
			if desc.Type != "" {
				kind = desc.Type
			}
			details = desc.Details
		}
		line := "  [" + kind + "] " + name + " " + string(health[i].Status)
		if details != "" {
			line += " (" + details + ")"
		}
		lines = append(lines, line)
	}
	for _, r := range registry.Routes() {
		lines = append(lines, "  "+r.Method+" "+r.Path)
	}
	return lines
}

// Display logs the summary lines.
func (s *Summary) Display(ctx context.Context, registry *component.Registry, log *logger.Logger) {
	for _, line := range s.Lines(ctx, registry) {
		log.Info(line)
	}
}
