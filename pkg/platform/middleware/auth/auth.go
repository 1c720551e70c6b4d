// Package auth holds the bearer-token middleware guarding the API.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
	"issuehub/pkg/platform/httputil"
	"issuehub/pkg/requestcontext"
)

type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims is the validator's view of a token, decoupled from the jwt library.
type JWTClaims struct {
	UserID    string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

var (
	errMissingToken = dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header")
	errInvalidToken = dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	errRevokedToken = dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
)

// RequireAuth admits requests carrying a valid, unrevoked bearer token and
// stores the requester and token id in the context. revocations may be nil.
func RequireAuth(validator JWTValidator, revocations TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, requester, err := authenticate(ctx, r, validator, revocations)
			if err != nil {
				level := slog.LevelWarn
				if dErrors.HasCode(err, dErrors.CodeUnavailable) {
					level = slog.LevelError
				}
				logger.Log(ctx, level, "request rejected by auth",
					"error", err,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			ctx = requestcontext.WithRequester(ctx, requester)
			ctx = requestcontext.WithToken(ctx, claims.JTI, claims.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, r *http.Request, validator JWTValidator, revocations TokenRevocationChecker) (*JWTClaims, id.Requester, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, id.Requester{}, errMissingToken
	}
	claims, err := validator.ValidateToken(raw)
	if err != nil {
		return nil, id.Requester{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, errInvalidToken.Message)
	}
	userID, err := id.ParseUserID(claims.UserID)
	role := id.Role(claims.Role)
	if err != nil || !role.IsValid() {
		return nil, id.Requester{}, errInvalidToken
	}
	if revocations != nil {
		revoked, err := revocations.IsRevoked(ctx, claims.JTI)
		if err != nil {
			return nil, id.Requester{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "token revocation check unavailable")
		}
		if revoked {
			return nil, id.Requester{}, errRevokedToken
		}
	}
	return claims, id.Requester{ID: userID, Role: role}, nil
}
