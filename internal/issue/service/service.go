package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	authmodels "issuehub/internal/auth/models"
	issuemetrics "issuehub/internal/issue/metrics"
	"issuehub/internal/issue/models"
	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
	"issuehub/pkg/platform/audit"
	"issuehub/pkg/platform/sentinel"
	"issuehub/pkg/requestcontext"
)

const (
	DefaultStoreTimeout = 5 * time.Second
	tracerName          = "issuehub/internal/issue/service"
)

type Store interface {
	Create(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, issueID id.IssueID) (*models.Record, error)
	Find(ctx context.Context, filter models.Filter, order models.Sort, page models.Page) ([]models.Record, error)
	Count(ctx context.Context, filter models.Filter) (int, error)
	Update(ctx context.Context, issueID id.IssueID, fn func(*models.Issue) error) (*models.Record, error)
	Delete(ctx context.Context, issueID id.IssueID, guard func(*models.Issue) error) error
	Tally(ctx context.Context, requester id.UserID) ([]models.Tally, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service enforces validation and the owner-or-admin rule in front of the
// issue store.
type Service struct {
	issues         Store
	users          UserLookup
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *issuemetrics.Metrics
	tracer         trace.Tracer
	now            func() time.Time
	storeTimeout   time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *issuemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithStoreTimeout bounds every store call. d <= 0 keeps the default.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(issues Store, users UserLookup, opts ...Option) *Service {
	s := &Service{
		issues:       issues,
		users:        users,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of issues matching q. Any authenticated user may
// list every issue.
func (s *Service) List(ctx context.Context, requester id.Requester, q models.Query) (_ *models.ListResult, err error) {
	ctx, span := s.tracer.Start(ctx, "issue.List", trace.WithAttributes(
		attribute.Int("page", q.Page.Number),
		attribute.Int("limit", q.Page.Size),
		attribute.String("sort", string(q.Sort.Field)+" "+string(q.Sort.Order)),
	))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	start := time.Now()

	var (
		records []models.Record
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.issues.Find(gctx, q.Filter, q.Sort, q.Page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.issues.Count(gctx, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.translateStoreErr(ctx, err, "failed to list issues")
	}
	s.metrics.ObserveStore("list", time.Since(start))

	if records == nil {
		records = []models.Record{}
	}
	return &models.ListResult{Issues: records, Pagination: models.NewPagination(q.Page, total)}, nil
}

// Get returns one issue.
func (s *Service) Get(ctx context.Context, requester id.Requester, issueID id.IssueID) (_ *models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "issue.Get", trace.WithAttributes(attribute.String("issue.id", issueID.String())))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	rec, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, s.translateStoreErr(ctx, err, "failed to load issue")
	}
	return rec, nil
}

// Create validates the payload and stores a new issue owned by the
// requester.
func (s *Service) Create(ctx context.Context, requester id.Requester, req models.CreateRequest) (_ *models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "issue.Create")
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	issue, err := req.Build(requester.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("issue.id", issue.ID.String()))

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if issue.AssignedTo != nil {
		if err := s.ensureAssignee(ctx, *issue.AssignedTo); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, s.translateStoreErr(ctx, err, "failed to create issue")
	}
	rec, err := s.issues.FindByID(ctx, issue.ID)
	if err != nil {
		return nil, s.translateStoreErr(ctx, err, "failed to load created issue")
	}
	s.metrics.ObserveStore("create", time.Since(start))
	s.metrics.IncMutation("create")
	s.emitAudit(ctx, audit.EventIssueCreated, requester.ID, issue.ID, "")
	return rec, nil
}

// Update applies the fields present in req. Only the creator or an admin
// may update; createdBy and createdAt never change.
func (s *Service) Update(ctx context.Context, requester id.Requester, issueID id.IssueID, req models.UpdateRequest) (_ *models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "issue.Update", trace.WithAttributes(attribute.String("issue.id", issueID.String())))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	assignee, assigneeSet, err := req.Assignee()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if assigneeSet && assignee != nil {
		// Authorize before probing the user table.
		current, err := s.issues.FindByID(ctx, issueID)
		if err != nil {
			return nil, s.translateStoreErr(ctx, err, "failed to load issue")
		}
		if !requester.CanModify(current.CreatedBy) {
			return nil, s.denied(ctx, "update", requester, issueID)
		}
		if err := s.ensureAssignee(ctx, *assignee); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	start := time.Now()
	rec, err := s.issues.Update(ctx, issueID, func(issue *models.Issue) error {
		if !requester.CanModify(issue.CreatedBy) {
			return errForbidden
		}
		return req.Apply(issue, now)
	})
	if errors.Is(err, errForbidden) {
		return nil, s.denied(ctx, "update", requester, issueID)
	}
	if err != nil {
		return nil, s.translateStoreErr(ctx, err, "failed to update issue")
	}
	s.metrics.ObserveStore("update", time.Since(start))
	s.metrics.IncMutation("update")
	s.emitAudit(ctx, audit.EventIssueUpdated, requester.ID, issueID, "")
	return rec, nil
}

// Delete permanently removes an issue. Only the creator or an admin may
// delete.
func (s *Service) Delete(ctx context.Context, requester id.Requester, issueID id.IssueID) (err error) {
	ctx, span := s.tracer.Start(ctx, "issue.Delete", trace.WithAttributes(attribute.String("issue.id", issueID.String())))
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(requester); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	err = s.issues.Delete(ctx, issueID, func(issue *models.Issue) error {
		if !requester.CanModify(issue.CreatedBy) {
			return errForbidden
		}
		return nil
	})
	if errors.Is(err, errForbidden) {
		return s.denied(ctx, "delete", requester, issueID)
	}
	if err != nil {
		return s.translateStoreErr(ctx, err, "failed to delete issue")
	}
	s.metrics.ObserveStore("delete", time.Since(start))
	s.metrics.IncMutation("delete")
	s.emitAudit(ctx, audit.EventIssueDeleted, requester.ID, issueID, "")
	return nil
}

// Stats aggregates counts over every issue; Mine counts the requester's.
func (s *Service) Stats(ctx context.Context, requester id.Requester) (_ *models.Stats, err error) {
	ctx, span := s.tracer.Start(ctx, "issue.Stats")
	defer func() { endSpan(span, err) }()

	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	tallies, err := s.issues.Tally(ctx, requester.ID)
	if err != nil {
		return nil, s.translateStoreErr(ctx, err, "failed to aggregate issues")
	}
	s.metrics.ObserveStore("stats", time.Since(start))

	agg := models.Aggregator{Logger: s.logger, Skipped: s.metrics.IncStatsSkipped}
	stats := agg.Aggregate(ctx, tallies)
	return &stats, nil
}

var errForbidden = errors.New("requester may not modify issue")

func (s *Service) denied(ctx context.Context, operation string, requester id.Requester, issueID id.IssueID) error {
	s.logger.WarnContext(ctx, "issue access denied",
		"operation", operation,
		"issue_id", issueID.String(),
		"user_id", requester.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncAccessDenied(operation)
	s.emitAudit(ctx, audit.EventIssueAccessDenied, requester.ID, issueID, operation)
	return dErrors.New(dErrors.CodeForbidden, "only the creator or an admin can "+operation+" this issue")
}

func (s *Service) ensureAssignee(ctx context.Context, userID id.UserID) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Validation("assignedTo", "assigned user does not exist")
		}
		return s.translateStoreErr(ctx, err, "failed to load assignee")
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.AuditEvent, actor id.UserID, issueID id.IssueID, reason string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		ActorID:   actor,
		Action:    string(event),
		Subject:   issueID.String(),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		IP:        requestcontext.ClientIP(ctx),
		Client:    requestcontext.UserAgent(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}

// translateStoreErr passes domain errors through and maps sentinels and
// deadline expiry onto codes.
func (s *Service) translateStoreErr(ctx context.Context, err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "issue not found")
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		s.logger.ErrorContext(ctx, "issue store unavailable",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable, retry later")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func requireAuthenticated(requester id.Requester) error {
	if !requester.IsAuthenticated() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
