package ports

import (
	"context"

	"github.com/quizhub/auth-service/internal/core/domain"
)

// TokenService issues and validates signed bearer tokens.
type TokenService interface {
	IssueAccessToken(username string) (string, error)
	IssueRefreshToken(username string) (string, error)
	IssueTokenPair(username string) (access, refresh string, err error)
	// Validate checks signature, subject and expiry for a token of any kind.
	Validate(token, expectedUsername string) bool
	// ValidateKind is Validate plus a check on the token kind.
	ValidateKind(token string, kind domain.TokenKind, expectedUsername string) bool
	// ExtractUsername verifies the token and returns its subject. Expired
	// tokens yield domain.ErrTokenExpired.
	ExtractUsername(token string) (string, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// LoginLimiter throttles repeated failed sign-ins per username.
type LoginLimiter interface {
	Allowed(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}
