package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"issuehub/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		res := healthResponse{Status: "ok"}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				if res.Checks == nil {
					res.Checks = make(map[string]string)
				}
				res.Checks[c.Name] = "unavailable"
				res.Status = "degraded"
				logger.WarnContext(ctx, "health check failed", "check", c.Name, "error", err)
			}
		}
		status := http.StatusOK
		if res.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, res)
	}
}
