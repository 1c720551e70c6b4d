// Package requestcontext carries request-scoped values (caller, token,
// client metadata, request id and clock) through context.Context so
// services never import net/http.
package requestcontext

import (
	"context"
	"time"

	id "issuehub/pkg/domain"
)

type (
	requesterKey   struct{}
	tokenKey       struct{}
	clientKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

type token struct {
	jti       string
	expiresAt time.Time
}

type client struct {
	ip        string
	userAgent string
}

func value[T any](ctx context.Context, key any) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// Requester returns the authenticated caller, or the zero Requester when
// the request did not pass RequireAuth.
func Requester(ctx context.Context) id.Requester {
	return value[id.Requester](ctx, requesterKey{})
}

func WithRequester(ctx context.Context, r id.Requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, r)
}

// TokenID is the jti of the bearer token; logout revokes it.
func TokenID(ctx context.Context) string {
	return value[token](ctx, tokenKey{}).jti
}

func TokenExpiry(ctx context.Context) time.Time {
	return value[token](ctx, tokenKey{}).expiresAt
}

func WithToken(ctx context.Context, jti string, expiresAt time.Time) context.Context {
	return context.WithValue(ctx, tokenKey{}, token{jti: jti, expiresAt: expiresAt})
}

func ClientIP(ctx context.Context) string {
	return value[client](ctx, clientKey{}).ip
}

// UserAgent is the condensed client description, not the raw header.
func UserAgent(ctx context.Context) string {
	return value[client](ctx, clientKey{}).userAgent
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: clientIP, userAgent: userAgent})
}

func RequestID(ctx context.Context) string {
	return value[string](ctx, requestIDKey{})
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the instant the request arrived. Outside a request it falls back
// to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
