package jwttoken

import (
	authmw "issuehub/pkg/platform/middleware/auth"
)

// JWTServiceAdapter satisfies authmw.JWTValidator so the middleware stays
// free of the jwt library.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	c, err := a.service.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	// Expiry is required by the parser, so ExpiresAt is never nil here.
	return &authmw.JWTClaims{
		UserID:    c.Subject,
		Role:      c.Role,
		JTI:       c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
