// Package auth issues and verifies HS256 bearer tokens and carries the
// verified principal through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "assessd"

// Roles recognised by the assessment service.
const (
	RoleLearner    = "learner"
	RoleInstructor = "instructor"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

// Service signs and parses tokens with one shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService returns a Service. A ttl of zero means eight hours.
func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for sub with the given role.
func (s *Service) Issue(sub, role string) (string, error) {
	if sub == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}
	if role != RoleLearner && role != RoleInstructor {
		return "", fmt.Errorf("issue token: unknown role %q", role)
	}
	now := s.now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies raw and returns its principal.
func (s *Service) Parse(raw string) (Principal, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := token.Claims.(*Claims)
	if !ok || c.Sub == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: c.Sub, Role: c.Role}, nil
}

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal set by the middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
