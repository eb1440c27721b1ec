package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kbukum/yttext/component"
)

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method string
	Path   string
}

// BackendInfo records a transcription backend and whether it passed its
// availability check at startup.
type BackendInfo struct {
	Name      string
	Available bool
	Detail    string
}

// Summary collects what the application wired up and prints it once
// startup completes.
type Summary struct {
	serviceName     string
	version         string
	environment     string
	startupDuration time.Duration
	routes          []RouteInfo
	backends        []BackendInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version, environment string) *Summary {
	return &Summary{serviceName: serviceName, version: version, environment: environment}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path})
}

// TrackBackend records a transcription backend.
func (s *Summary) TrackBackend(name string, available bool, detail string) {
	s.backends = append(s.backends, BackendInfo{Name: name, Available: available, Detail: detail})
}

// Write prints the summary including live health from the registry.
func (s *Summary) Write(w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s %s (%s) started in %.2fs\n", s.serviceName, s.version, s.environment, s.startupDuration.Seconds())

	if registry != nil {
		health := registry.HealthAll(context.Background())
		byName := make(map[string]component.Health, len(health))
		for _, h := range health {
			byName[h.Name] = h
		}

		all := registry.All()
		fmt.Fprintf(w, "\n📦 Components (%d)\n", len(all))
		healthy := 0
		for i, c := range all {
			h := byName[c.Name()]
			if h.Status == component.StatusHealthy {
				healthy++
			}
			line := c.Name()
			if d, ok := c.(component.Describable); ok {
				line += ": " + d.Describe().Details
			}
			if h.Message != "" {
				line += " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s %s\n", treePrefix(i, len(all)), healthStatusIcon(h.Status), line)
		}
		if len(all) > 0 && healthy == len(all) {
			fmt.Fprintf(w, "✅ All components healthy (%d/%d)\n", healthy, len(all))
		} else if len(all) > 0 {
			fmt.Fprintf(w, "⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(all))
		}
	}

	if len(s.backends) > 0 {
		fmt.Fprintf(w, "\n🎙️ Backends\n")
		for i, b := range s.backends {
			icon := "✅"
			if !b.Available {
				icon = "⏸️"
			}
			line := b.Name
			if b.Detail != "" {
				line += " (" + b.Detail + ")"
			}
			fmt.Fprintf(w, "   %s %s %s\n", treePrefix(i, len(s.backends)), icon, line)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path)
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
