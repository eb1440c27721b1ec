package endpoint

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/yttext/component"
	"github.com/kbukum/yttext/observability"
)

// ReadyCheck is an extra readiness gate beyond component health, such as
// "at least one backend is available". It returns the reason when not ready.
type ReadyCheck func(ctx context.Context) (ok bool, reason string)

// Readiness answers 200 when every component is healthy or degraded and
// every gate passes, 503 otherwise. The body lists each component.
func Readiness(serviceName, version string, checker HealthChecker, gates ...ReadyCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		report := observability.NewServiceHealth(serviceName, version)

		if checker != nil {
			for _, h := range checker(ctx) {
				report.AddComponent(observability.Health{
					Name:    h.Name,
					Status:  toHealthStatus(h.Status),
					Message: h.Message,
				})
			}
		}

		var reasons []string
		for _, gate := range gates {
			if ok, reason := gate(ctx); !ok {
				reasons = append(reasons, reason)
			}
		}

		ready := report.Status != observability.HealthStatusDown && len(reasons) == 0
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":      ready,
			"status":     report.Status,
			"service":    report.Service,
			"version":    report.Version,
			"components": report.Components,
			"reasons":    reasons,
		})
	}
}

func toHealthStatus(s component.HealthStatus) observability.HealthStatus {
	switch s {
	case component.StatusHealthy:
		return observability.HealthStatusUp
	case component.StatusDegraded:
		return observability.HealthStatusDegraded
	default:
		return observability.HealthStatusDown
	}
}
