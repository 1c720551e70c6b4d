package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"issuehub/internal/issue/models"
	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
	"issuehub/pkg/platform/httputil"
	"issuehub/pkg/requestcontext"
)

// Service defines the interface for issue operations.
type Service interface {
	List(ctx context.Context, requester id.Requester, q models.Query) (*models.ListResult, error)
	Get(ctx context.Context, requester id.Requester, issueID id.IssueID) (*models.Record, error)
	Create(ctx context.Context, requester id.Requester, req models.CreateRequest) (*models.Record, error)
	Update(ctx context.Context, requester id.Requester, issueID id.IssueID, req models.UpdateRequest) (*models.Record, error)
	Delete(ctx context.Context, requester id.Requester, issueID id.IssueID) error
	Stats(ctx context.Context, requester id.Requester) (*models.Stats, error)
}

// Handler handles the /issues endpoints.
type Handler struct {
	logger *slog.Logger
	issues Service
}

func New(issues Service, logger *slog.Logger) *Handler {
	return &Handler{issues: issues, logger: logger}
}

// RegisterProtected registers routes that expect RequireAuth upstream.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Route("/issues", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/stats", h.handleStats)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.requester(ctx, w)
	if !ok {
		return
	}
	qs := r.URL.Query()
	q, err := models.ParseListQuery(models.ListParams{
		Page:      qs.Get("page"),
		Limit:     qs.Get("limit"),
		Status:    qs.Get("status"),
		Priority:  qs.Get("priority"),
		Search:    qs.Get("search"),
		SortBy:    qs.Get("sortBy"),
		SortOrder: qs.Get("sortOrder"),
	})
	if err != nil {
		h.fail(ctx, w, "invalid list query", err)
		return
	}
	res, err := h.issues.List(ctx, requester, q)
	if err != nil {
		h.fail(ctx, w, "list issues failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res.Response())
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.requester(ctx, w)
	if !ok {
		return
	}
	stats, err := h.issues.Stats(ctx, requester)
	if err != nil {
		h.fail(ctx, w, "issue stats failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.requester(ctx, w)
	if !ok {
		return
	}
	issueID, ok := h.issueID(ctx, w, r)
	if !ok {
		return
	}
	rec, err := h.issues.Get(ctx, requester, issueID)
	if err != nil {
		h.fail(ctx, w, "get issue failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec.View())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.requester(ctx, w)
	if !ok {
		return
	}
	var req models.CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "invalid create issue request", err)
		return
	}
	rec, err := h.issues.Create(ctx, requester, req)
	if err != nil {
		h.fail(ctx, w, "create issue failed", err)
		return
	}
	view := rec.View()
	httputil.WriteJSON(w, http.StatusCreated, models.MutationResponse{Message: models.MessageCreated, Issue: &view})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.requester(ctx, w)
	if !ok {
		return
	}
	issueID, ok := h.issueID(ctx, w, r)
	if !ok {
		return
	}
	var req models.UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "invalid update issue request", err)
		return
	}
	rec, err := h.issues.Update(ctx, requester, issueID, req)
	if err != nil {
		h.fail(ctx, w, "update issue failed", err)
		return
	}
	view := rec.View()
	httputil.WriteJSON(w, http.StatusOK, models.MutationResponse{Message: models.MessageUpdated, Issue: &view})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.requester(ctx, w)
	if !ok {
		return
	}
	issueID, ok := h.issueID(ctx, w, r)
	if !ok {
		return
	}
	if err := h.issues.Delete(ctx, requester, issueID); err != nil {
		h.fail(ctx, w, "delete issue failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.MutationResponse{Message: models.MessageDeleted})
}

func (h *Handler) requester(ctx context.Context, w http.ResponseWriter) (id.Requester, bool) {
	requester := requestcontext.Requester(ctx)
	if !requester.IsAuthenticated() {
		h.fail(ctx, w, "requester missing from context", dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.Requester{}, false
	}
	return requester, true
}

// issueID reads the path id. A malformed id cannot name an issue, so it
// is reported as not found.
func (h *Handler) issueID(ctx context.Context, w http.ResponseWriter, r *http.Request) (id.IssueID, bool) {
	issueID, err := id.ParseIssueID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "malformed issue id", dErrors.Wrap(err, dErrors.CodeNotFound, "issue not found"))
		return id.IssueID{}, false
	}
	return issueID, true
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
