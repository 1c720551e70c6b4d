package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"issuehub/internal/auth/models"
	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
	"issuehub/pkg/platform/httputil"
	"issuehub/pkg/requestcontext"
)

// Service defines the interface for auth operations.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
	Logout(ctx context.Context, requester id.Requester, jti string, expiresAt time.Time) error
	Activity(ctx context.Context, requester id.Requester, target id.UserID) ([]models.ActivityEntry, error)
}

// Handler handles the /auth endpoints.
type Handler struct {
	logger *slog.Logger
	auth   Service
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// RegisterPublic registers the unauthenticated routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
}

// RegisterProtected registers routes that expect RequireAuth upstream.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me/activity", h.handleActivity)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "invalid register request", err)
		return
	}
	res, err := h.auth.Register(ctx, req)
	if err != nil {
		h.fail(ctx, w, "register failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "invalid login request", err)
		return
	}
	res, err := h.auth.Login(ctx, req)
	if err != nil {
		h.fail(ctx, w, "login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester := requestcontext.Requester(ctx)
	if !requester.IsAuthenticated() {
		h.fail(ctx, w, "requester missing from context", dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	user, err := h.auth.Me(ctx, requester.ID)
	if err != nil {
		h.fail(ctx, w, "load current user failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]models.UserView{"user": user.View()})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester := requestcontext.Requester(ctx)
	if !requester.IsAuthenticated() {
		h.fail(ctx, w, "requester missing from context", dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	err := h.auth.Logout(ctx, requester, requestcontext.TokenID(ctx), requestcontext.TokenExpiry(ctx))
	if err != nil {
		h.fail(ctx, w, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester := requestcontext.Requester(ctx)
	if !requester.IsAuthenticated() {
		h.fail(ctx, w, "requester missing from context", dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	var target id.UserID
	if raw := r.URL.Query().Get("userId"); raw != "" {
		parsed, err := id.ParseUserID(raw)
		if err != nil {
			h.fail(ctx, w, "invalid userId", err)
			return
		}
		target = parsed
	}
	entries, err := h.auth.Activity(ctx, requester, target)
	if err != nil {
		h.fail(ctx, w, "load activity failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]models.ActivityEntry{"events": entries})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if httputil.StatusFor(codeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}

func codeOf(err error) dErrors.Code {
	if de, ok := dErrors.As(err); ok {
		return de.Code
	}
	return dErrors.CodeInternal
}
