// Package app wires configuration into stores, services and the HTTP
// router. It owns every resource it opens and releases them in Close.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	authhandler "issuehub/internal/auth/handler"
	authmetrics "issuehub/internal/auth/metrics"
	authservice "issuehub/internal/auth/service"
	"issuehub/internal/auth/store/revocation"
	userstore "issuehub/internal/auth/store/user"
	httpapi "issuehub/internal/http"
	issuehandler "issuehub/internal/issue/handler"
	issuemetrics "issuehub/internal/issue/metrics"
	issueservice "issuehub/internal/issue/service"
	issuestore "issuehub/internal/issue/store/issue"
	jwttoken "issuehub/internal/jwt_token"
	"issuehub/internal/platform/config"
	"issuehub/internal/platform/database"
	"issuehub/internal/platform/metrics"
	platformredis "issuehub/internal/platform/redis"
	"issuehub/pkg/platform/audit"
	"issuehub/pkg/platform/audit/publisher"
	"issuehub/pkg/platform/audit/publishers/kafka"
	auditmemory "issuehub/pkg/platform/audit/store/memory"
	auditsql "issuehub/pkg/platform/audit/store/sql"
	authmw "issuehub/pkg/platform/middleware/auth"
)

// App is a fully wired server.
type App struct {
	Router http.Handler
	Auth   *authservice.Service
	Issues *issueservice.Service
	Audit  *publisher.Publisher

	logger  *slog.Logger
	closers []func() error
}

type userStore interface {
	authservice.UserStore
	issuestore.UserDirectory
}

type revocationList interface {
	authservice.TokenRevoker
	authmw.TokenRevocationChecker
}

// New builds the application. reg receives every metric; pass a fresh
// registry in tests.
func New(ctx context.Context, cfg config.Server, logger *slog.Logger, reg *prometheus.Registry) (_ *App, err error) {
	a := &App{logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(reg)
	authMetrics := authmetrics.New(reg)
	issueMetrics := issuemetrics.New(reg)

	var (
		users      userStore
		issues     issueservice.Store
		auditSinks audit.Fanout
		health     []httpapi.HealthCheck
	)
	if cfg.Database.DSN != "" {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		users = userstore.NewSQL(db)
		issues = issuestore.NewSQL(db)
		auditSinks = append(auditSinks, auditsql.New(db))
		health = append(health, httpapi.HealthCheck{Name: "database", Check: db.PingContext})
		logger.InfoContext(ctx, "using sql stores", "driver", string(db.Dialect))
	} else {
		memUsers := userstore.New()
		users = memUsers
		issues = issuestore.New(memUsers)
		auditSinks = append(auditSinks, auditmemory.NewInMemoryStore())
		logger.WarnContext(ctx, "database dsn empty, using in-memory stores")
	}

	var trl revocationList
	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
		trl = revocation.NewRedisTRL(rc.Client, revocation.WithLatencyObserver(authMetrics.RevocationCheckMs))
		health = append(health, httpapi.HealthCheck{Name: "redis", Check: rc.Health})
	} else {
		trl = revocation.NewInMemoryTRL()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.Dial(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		a.closers = append(a.closers, func() error { sink.Close(); return nil })
		auditSinks = append(auditSinks, sink)
	}

	// Registered after the sinks so Close drains the queue before they go.
	a.Audit = publisher.NewPublisher(auditSinks,
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithLogger(logger),
	)
	a.closers = append(a.closers, func() error { a.Audit.Close(); return nil })

	if cfg.UsesDevSigningKey() {
		logger.WarnContext(ctx, "using the built-in development jwt signing key")
	}
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	a.Auth = authservice.New(users, tokens, trl, cfg.TokenTTL,
		authservice.WithLogger(logger),
		authservice.WithAuditPublisher(a.Audit),
		authservice.WithAuditLog(a.Audit),
		authservice.WithMetrics(authMetrics),
	)
	a.Issues = issueservice.New(issues, users,
		issueservice.WithLogger(logger),
		issueservice.WithAuditPublisher(a.Audit),
		issueservice.WithMetrics(issueMetrics),
		issueservice.WithStoreTimeout(cfg.StoreTimeout),
	)

	if cfg.Admin.Email != "" {
		created, err := a.Auth.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		if !created {
			logger.InfoContext(ctx, "bootstrap admin already present")
		}
	}

	a.Router = httpapi.NewRouter(httpapi.Deps{
		Logger:         logger,
		Metrics:        httpMetrics,
		Gatherer:       reg,
		Auth:           authhandler.New(a.Auth, logger),
		Issues:         issuehandler.New(a.Issues, logger),
		Tokens:         jwttoken.NewJWTServiceAdapter(tokens),
		Revocations:    trl,
		Health:         health,
		RequestTimeout: cfg.RequestTimeout,
	})
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
