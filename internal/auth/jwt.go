// Package auth issues and validates HS256 access tokens. The token subject is
// the user id that scopes all per-user storage.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token defaults used when TokenConfig leaves a field empty.
const (
	DefaultTokenTTL = 15 * time.Minute
	DefaultIssuer   = "kidroute"
	DefaultAudience = "kidroute-api"
)

// Token errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSubject     = errors.New("token has no subject")
)

// Claims are the claims carried by access tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	TTL        time.Duration
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// TokenService creates and validates access tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(cfg TokenConfig) *TokenService {
	s := &TokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        cfg.TTL,
		now:        cfg.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.issuer == "" {
		s.issuer = DefaultIssuer
	}
	if s.audience == "" {
		s.audience = DefaultAudience
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GenerateAccessToken creates an access token for userID.
func (s *TokenService) GenerateAccessToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrMissingSubject
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken validates tokenString and returns its user id.
func (s *TokenService) ValidateAccessToken(tokenString string) (string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrAccessTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidAccessToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidAccessToken, ErrMissingSubject)
	}
	return claims.Subject, nil
}
