// Package tokens issues and redeems the single-purpose security tokens
// used by the identity facade's composite property flows.
package tokens

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"idman.org/internal/obs"
)

// Token purposes. A token redeemed for a different purpose than it was
// generated for is invalid.
const (
	PurposePasswordReset = "password_reset"
	PurposePhoneChange   = "phone_change"
	PurposeEmailConfirm  = "email_confirm"
)

const issuer = "idman"

const defaultTTL = 15 * time.Minute

var (
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("tokens: invalid token")

	// ErrRateLimited indicates token issuance was throttled.
	ErrRateLimited = errors.New("tokens: issuance rate limit exceeded")
)

type claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Service signs and verifies purpose tokens with HS256.
type Service struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	limiter *rate.Limiter
}

// Option configures Service behavior.
type Option func(*Service) error

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl <= 0 {
			return errors.New("tokens: ttl must be greater than zero")
		}
		s.ttl = ttl
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithRateLimit throttles token issuance across all purposes.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Service) error {
		if perSecond <= 0 || burst <= 0 {
			return errors.New("tokens: rate limit must be positive")
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// NewService constructs a token service from a signing secret.
func NewService(secret string, opts ...Option) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("tokens: signing secret is required")
	}
	svc := &Service{
		secret: []byte(secret),
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Generate signs a token binding the purpose to the subject.
func (s *Service) Generate(ctx context.Context, purpose, subject string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	purpose = strings.TrimSpace(purpose)
	subject = strings.TrimSpace(subject)
	if purpose == "" || subject == "" {
		return "", errors.New("tokens: purpose and subject are required")
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return "", ErrRateLimited
	}

	now := s.now().UTC()
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	obs.CountTokenIssued(purpose)
	return signed, nil
}

// Redeem verifies the token signature and checks that purpose and subject
// match what the token was generated for.
func (s *Service) Redeem(ctx context.Context, purpose, subject, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		return ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return ErrInvalidToken
	}
	if c.Issuer != issuer || c.Purpose != purpose || c.Subject != subject {
		return ErrInvalidToken
	}
	return nil
}
