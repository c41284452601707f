package domain

// TokenKind separates access tokens from refresh tokens so one cannot be
// replayed as the other.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)
