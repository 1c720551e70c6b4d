package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	authmetrics "issuehub/internal/auth/metrics"
	"issuehub/internal/auth/models"
	"issuehub/internal/auth/secrets"
	jwttoken "issuehub/internal/jwt_token"
	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
	"issuehub/pkg/platform/audit"
	"issuehub/pkg/platform/sentinel"
	"issuehub/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, role id.Role, expiresIn time.Duration) (jwttoken.IssuedToken, error)
}

type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditLog reads recorded events back.
type AuditLog interface {
	List(ctx context.Context, actorID id.UserID) ([]audit.Event, error)
}

// Service implements registration, login and token revocation.
type Service struct {
	users          UserStore
	tokens         TokenIssuer
	revoker        TokenRevoker
	tokenTTL       time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	auditLog       AuditLog
	metrics        *authmetrics.Metrics
	now            func() time.Time
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

func WithAuditLog(log AuditLog) Option {
	return func(s *Service) {
		s.auditLog = log
	}
}

func WithMetrics(m *authmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(users UserStore, tokens TokenIssuer, revoker TokenRevoker, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		revoker:  revoker,
		tokenTTL: tokenTTL,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a regular user and signs them in.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req.Username, req.Email, req.Password, id.RoleUser)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, audit.EventUserRegistered, user.ID, user.ID.String(), "")
	s.metrics.IncUsersRegistered()
	return s.issue(user)
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			secrets.BurnCompare(req.Password)
			s.loginFailed(ctx, "unknown email")
			return nil, invalid
		}
		return nil, translateStoreErr(err, "failed to load user")
	}

	ok, err := secrets.Verify(user.PasswordHash, req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}
	if !ok {
		s.loginFailed(ctx, "wrong password")
		return nil, invalid
	}

	s.emitAudit(ctx, audit.EventLoginSucceeded, user.ID, user.ID.String(), "")
	s.metrics.IncLogin("success")
	return s.issue(user)
}

// Me returns the current user.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "user no longer exists")
		}
		return nil, translateStoreErr(err, "failed to load user")
	}
	return user, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, requester id.Requester, jti string, expiresAt time.Time) error {
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "token has no identifier")
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.emitAudit(ctx, audit.EventLogout, requester.ID, requester.ID.String(), "")
	s.metrics.IncLogout()
	return nil
}

// Activity returns the audit trail of a user. A zero target means the
// requester. Only admins may read another user's trail.
func (s *Service) Activity(ctx context.Context, requester id.Requester, target id.UserID) ([]models.ActivityEntry, error) {
	if target.IsNil() {
		target = requester.ID
	}
	if target != requester.ID && !requester.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins may read another user's activity")
	}
	if s.auditLog == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "activity log is not available")
	}
	events, err := s.auditLog.List(ctx, target)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read activity")
	}
	entries := make([]models.ActivityEntry, 0, len(events))
	for _, e := range events {
		entries = append(entries, models.ActivityEntry{
			Action:    e.Action,
			Category:  string(e.Category),
			Subject:   e.Subject,
			Reason:    e.Reason,
			IP:        e.IP,
			Client:    e.Client,
			Timestamp: e.Timestamp,
		})
	}
	return entries, nil
}

// SeedAdmin creates an admin account unless the email is already taken.
// It reports whether a user was created.
func (s *Service) SeedAdmin(ctx context.Context, username, email, password string) (bool, error) {
	req := models.RegisterRequest{Username: username, Email: email, Password: password}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return false, err
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return false, translateStoreErr(err, "failed to look up admin")
	}
	user, err := s.createUser(ctx, req.Username, req.Email, req.Password, id.RoleAdmin)
	if err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "user_id", user.ID.String())
	return true, nil
}

func (s *Service) createUser(ctx context.Context, username, email, password string, role id.Role) (*models.User, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user := &models.User{
		ID:           id.NewUserID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or email already registered")
		}
		return nil, translateStoreErr(err, "failed to create user")
	}
	return user, nil
}

func (s *Service) issue(user *models.User) (*models.AuthResult, error) {
	token, err := s.tokens.GenerateAccessToken(user.ID, user.Role, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &models.AuthResult{Token: token.Token, ExpiresAt: token.ExpiresAt, User: user.View()}, nil
}

func (s *Service) loginFailed(ctx context.Context, reason string) {
	s.logger.WarnContext(ctx, "login failed",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.EventLoginFailed, id.UserID{}, "", reason)
	s.metrics.IncLogin("failure")
}

func (s *Service) emitAudit(ctx context.Context, event audit.AuditEvent, actor id.UserID, subject, reason string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		ActorID:   actor,
		Action:    string(event),
		Subject:   subject,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		IP:        requestcontext.ClientIP(ctx),
		Client:    requestcontext.UserAgent(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}

func translateStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable, retry later")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
