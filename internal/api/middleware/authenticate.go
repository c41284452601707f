package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
	"github.com/quizhub/auth-service/internal/pkg/metrics"
)

const (
	// PrincipalKey holds the *domain.Principal bound by Authenticate.
	PrincipalKey = "principal"
	// ExpiredKey holds the reason recorded when the bearer token had expired.
	ExpiredKey = "auth_expired"

	bearerPrefix = "Bearer "

	expiredReason = "Access token has expired"
)

// PrincipalLoader resolves a username to its request identity.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, username string) (*domain.Principal, error)
}

// Authenticate resolves the bearer token of every request into a principal.
// It never rejects: requests without a usable token continue anonymously and
// route guards decide what to do with them.
func Authenticate(tokens ports.TokenService, loader PrincipalLoader, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			outcome := authenticate(c, tokens, loader, log)
			metrics.FilterOutcomesTotal.WithLabelValues(outcome).Inc()
			return next(c)
		}
	}
}

func authenticate(c echo.Context, tokens ports.TokenService, loader PrincipalLoader, log zerolog.Logger) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return "anonymous"
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

	username, err := tokens.ExtractUsername(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			c.Set(ExpiredKey, expiredReason)
			return "expired"
		}
		log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token rejected")
		return "invalid"
	}

	if PrincipalFrom(c) != nil {
		return "authenticated"
	}

	principal, err := loader.LoadPrincipal(c.Request().Context(), username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			log.Error().Err(err).Str("username", username).Msg("load principal failed")
		}
		return "unknown_user"
	}

	if !tokens.ValidateKind(token, domain.TokenAccess, principal.Username) {
		return "invalid"
	}

	c.Set(PrincipalKey, principal)
	return "authenticated"
}

// PrincipalFrom returns the principal bound to the request, or nil for an
// anonymous request.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(PrincipalKey).(*domain.Principal)
	return p
}

// ExpiredReason returns the reason recorded when the presented token had
// expired, or "" otherwise.
func ExpiredReason(c echo.Context) string {
	r, _ := c.Get(ExpiredKey).(string)
	return r
}
