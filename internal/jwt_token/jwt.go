// Package jwttoken signs and verifies the HS256 access tokens handed out at
// login. The subject is the user id; the jti is what logout revokes.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "issuehub/pkg/domain"
	dErrors "issuehub/pkg/domain-errors"
)

type AccessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token plus the fields needed for the login
// response and later revocation.
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

type JWTService struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
	parser   *jwt.Parser
}

type Option func(*JWTService)

// WithClock fixes the time used to stamp and verify tokens.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

func NewJWTService(signingKey, issuer, audience string, opts ...Option) *JWTService {
	s := &JWTService{key: []byte(signingKey), issuer: issuer, audience: audience, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s
}

func (s *JWTService) GenerateAccessToken(userID id.UserID, role id.Role, expiresIn time.Duration) (IssuedToken, error) {
	issuedAt := s.now()
	out := IssuedToken{JTI: uuid.NewString(), ExpiresAt: issuedAt.Add(expiresIn)}
	claims := AccessTokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(out.ExpiresAt),
			ID:        out.JTI,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return IssuedToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}
	out.Token = signed
	return out, nil
}

var (
	errTokenExpired = dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	errTokenInvalid = dErrors.New(dErrors.CodeUnauthorized, "invalid token")
)

// ValidateToken verifies signature, issuer, audience and expiry, and
// requires subject and jti to be present.
func (s *JWTService) ValidateToken(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return s.key, nil })
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errTokenExpired
	case err != nil:
		return nil, errTokenInvalid
	case claims.Subject == "" || claims.ID == "":
		return nil, errTokenInvalid
	}
	return claims, nil
}
