// Package httpapi assembles the chi router: shared middleware, public auth
// routes, health and metrics endpoints, and the authenticated API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "issuehub/internal/auth/handler"
	issuehandler "issuehub/internal/issue/handler"
	"issuehub/internal/platform/metrics"
	authmw "issuehub/pkg/platform/middleware/auth"
	"issuehub/pkg/platform/middleware/metadata"
	request "issuehub/pkg/platform/middleware/request"
	"issuehub/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts. Revocations and Gatherer may
// be nil.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Auth           *authhandler.Handler
	Issues         *issuehandler.Handler
	Tokens         authmw.JWTValidator
	Revocations    authmw.TokenRevocationChecker
	Health         []HealthCheck
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger))
	if d.RequestTimeout > 0 {
		r.Use(request.Timeout(d.RequestTimeout))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.LatencyMiddleware)
	}
	r.Use(request.ContentTypeJSON)

	r.Get("/healthz", healthHandler(d.Health, d.Logger))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	d.Auth.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Tokens, d.Revocations, d.Logger))
		d.Auth.RegisterProtected(r)
		d.Issues.RegisterProtected(r)
	})
	return r
}
