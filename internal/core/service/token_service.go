package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quizhub/auth-service/internal/core/domain"
)

const refreshTokenTTL = 24 * time.Hour

type tokenClaims struct {
	Kind domain.TokenKind `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS512 bearer tokens carrying the username
// as subject. It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenService returns a TokenService whose access tokens expire after
// accessTTL. A non-positive TTL falls back to 15 minutes.
func NewTokenService(secret string, accessTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

func (s *TokenService) IssueAccessToken(username string) (string, error) {
	return s.issue(username, domain.TokenAccess, s.accessTTL)
}

func (s *TokenService) IssueRefreshToken(username string) (string, error) {
	return s.issue(username, domain.TokenRefresh, refreshTokenTTL)
}

func (s *TokenService) IssueTokenPair(username string) (string, string, error) {
	access, err := s.IssueAccessToken(username)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.IssueRefreshToken(username)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *TokenService) issue(username string, kind domain.TokenKind, ttl time.Duration) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Validate reports whether token carries a good signature, names
// expectedUsername as subject and has not yet expired.
func (s *TokenService) Validate(token, expectedUsername string) bool {
	claims, err := s.parse(token)
	if err != nil {
		return false
	}
	return claims.Subject == expectedUsername
}

// ValidateKind is Validate restricted to a single token kind.
func (s *TokenService) ValidateKind(token string, kind domain.TokenKind, expectedUsername string) bool {
	claims, err := s.parse(token)
	if err != nil {
		return false
	}
	return claims.Kind == kind && claims.Subject == expectedUsername
}

// ExtractUsername verifies token and returns its subject.
func (s *TokenService) ExtractUsername(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *TokenService) parse(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", domain.ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", domain.ErrTokenMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
		}
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrTokenInvalid)
	}
	return claims, nil
}
