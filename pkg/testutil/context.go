package testutil

import (
	"context"
	"net/http"
	"time"

	id "issuehub/pkg/domain"
	"issuehub/pkg/requestcontext"
)

// WithRequester adds an authenticated requester to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithRequester(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	ctx := requestcontext.WithRequester(req.Context(), id.Requester{ID: userID, Role: role})
	return req.WithContext(ctx)
}

// WithUser adds a regular user to the request context.
func WithUser(req *http.Request, userID id.UserID) *http.Request {
	return WithRequester(req, userID, id.RoleUser)
}

// WithAdmin adds an admin to the request context.
func WithAdmin(req *http.Request, userID id.UserID) *http.Request {
	return WithRequester(req, userID, id.RoleAdmin)
}

// WithToken attaches the token identifier the logout handler revokes.
func WithToken(req *http.Request, jti string, expiresAt time.Time) *http.Request {
	return req.WithContext(requestcontext.WithToken(req.Context(), jti, expiresAt))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
